package model

import "fmt"

// Field names a top-level form field.
type Field string

// Form fields settable through SetField.
const (
	FieldType         Field = "type"
	FieldDescription  Field = "description"
	FieldQtyTotal     Field = "qtyTotal"
	FieldStatus       Field = "status"
	FieldSource       Field = "source"
	FieldFrom         Field = "from"
	FieldTo           Field = "to"
	FieldLocationUsed Field = "locationUsed"
	FieldQtyUsed      Field = "qtyUsed"
	FieldQtyExcess    Field = "qtyExcess"
	FieldImageURL     Field = "imageUrl"
)

// TextFields lists the free-text fields in form order.
var TextFields = []Field{FieldType, FieldDescription, FieldSource, FieldFrom, FieldTo, FieldLocationUsed}

// QtyFields lists the quantity fields in form order.
var QtyFields = []Field{FieldQtyTotal, FieldQtyUsed, FieldQtyExcess}

// Edit is a single change to an in-progress record. The concrete types below
// are the only implementations.
type Edit interface {
	edit()
}

// SetField sets a top-level field from form text.
type SetField struct {
	Name  Field
	Value string
}

// SetConditionQty sets the quantity of the condition at Index (0-3).
type SetConditionQty struct {
	Index int
	Value string
}

// SetConditionStatus sets the status of the condition at Index (0-3).
type SetConditionStatus struct {
	Index int
	Value string
}

// AddBreakdown appends an empty breakdown line.
type AddBreakdown struct{}

// SetBreakdownCondition sets the label of the breakdown line at Index.
type SetBreakdownCondition struct {
	Index int
	Value string
}

// SetBreakdownQty sets the quantity of the breakdown line at Index.
type SetBreakdownQty struct {
	Index int
	Value string
}

// RemoveBreakdown removes the breakdown line at Index; later lines move up.
type RemoveBreakdown struct {
	Index int
}

func (SetField) edit()              {}
func (SetConditionQty) edit()       {}
func (SetConditionStatus) edit()    {}
func (AddBreakdown) edit()          {}
func (SetBreakdownCondition) edit() {}
func (SetBreakdownQty) edit()       {}
func (RemoveBreakdown) edit()       {}

// Apply returns a copy of r with e applied. The receiver is not modified.
//
// Condition indices outside 0-3 are a programming error and panic; the fixed
// condition list has no user-controlled length.
func (r InventoryRecord) Apply(e Edit) (InventoryRecord, error) {
	out := r.Clone()

	switch e := e.(type) {
	case SetField:
		if err := out.setField(e.Name, e.Value); err != nil {
			return r, err
		}
	case SetConditionQty:
		checkConditionIndex(e.Index)
		out.Conditions[e.Index].Qty = ParseQty(e.Value)
	case SetConditionStatus:
		checkConditionIndex(e.Index)
		cs, ok := ParseConditionStatus(e.Value)
		if !ok {
			return r, fmt.Errorf("%w: unknown condition status %q", ErrInvalidEdit, e.Value)
		}
		out.Conditions[e.Index].Status = cs
	case AddBreakdown:
		out.QtyUsedBreakdown = append(out.QtyUsedBreakdown, BreakdownEntry{})
	case SetBreakdownCondition:
		if err := checkBreakdownIndex(out, e.Index); err != nil {
			return r, err
		}
		out.QtyUsedBreakdown[e.Index].Condition = e.Value
	case SetBreakdownQty:
		if err := checkBreakdownIndex(out, e.Index); err != nil {
			return r, err
		}
		out.QtyUsedBreakdown[e.Index].Qty = ParseQty(e.Value)
	case RemoveBreakdown:
		if err := checkBreakdownIndex(out, e.Index); err != nil {
			return r, err
		}
		out.QtyUsedBreakdown = append(out.QtyUsedBreakdown[:e.Index], out.QtyUsedBreakdown[e.Index+1:]...)
	default:
		panic(fmt.Sprintf("model: unhandled edit %T", e))
	}

	return out, nil
}

func (r *InventoryRecord) setField(name Field, value string) error {
	switch name {
	case FieldType:
		r.Type = value
	case FieldDescription:
		r.Description = value
	case FieldSource:
		r.Source = value
	case FieldFrom:
		r.From = value
	case FieldTo:
		r.To = value
	case FieldLocationUsed:
		r.LocationUsed = value
	case FieldImageURL:
		r.ImageURL = value
	case FieldQtyTotal:
		r.QtyTotal = ParseQty(value)
	case FieldQtyUsed:
		r.QtyUsed = ParseQty(value)
	case FieldQtyExcess:
		r.QtyExcess = ParseQty(value)
	case FieldStatus:
		st, ok := ParseStatus(value)
		if !ok {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidEdit, value)
		}
		r.Status = st
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidEdit, name)
	}
	return nil
}

func checkConditionIndex(i int) {
	if i < 0 || i >= NumConditions {
		panic(fmt.Sprintf("model: condition index %d out of range", i))
	}
}

func checkBreakdownIndex(r InventoryRecord, i int) error {
	if i < 0 || i >= len(r.QtyUsedBreakdown) {
		return fmt.Errorf("%w: breakdown line %d does not exist", ErrInvalidEdit, i)
	}
	return nil
}
