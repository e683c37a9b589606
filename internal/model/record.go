package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the stock status of a record.
type Status string

// Record statuses.
const (
	StatusAvailable Status = "Available"
	StatusReserved  Status = "Reserved"
	StatusUsed      Status = "Used"
	StatusExcess    Status = "Excess"
	StatusNew       Status = "New"
)

// Statuses lists all record statuses in display order.
var Statuses = []Status{StatusAvailable, StatusReserved, StatusUsed, StatusExcess, StatusNew}

// ParseStatus returns the status named by s, matching case-insensitively.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// ConditionKind is one of the four fixed stock conditions.
type ConditionKind string

// Condition kinds, in their fixed order.
const (
	ConditionRefurbished ConditionKind = "refurbished"
	ConditionBrandNew    ConditionKind = "brandNew"
	ConditionScrap       ConditionKind = "scrap"
	ConditionDefective   ConditionKind = "defective"
)

// NumConditions is the number of condition entries every record carries.
const NumConditions = 4

// ConditionKinds is the fixed order of condition entries.
var ConditionKinds = [NumConditions]ConditionKind{
	ConditionRefurbished,
	ConditionBrandNew,
	ConditionScrap,
	ConditionDefective,
}

// ConditionStatus is the optional status of a condition entry.
type ConditionStatus string

// Condition statuses. The zero value means unset.
const (
	ConditionStatusNone      ConditionStatus = ""
	ConditionStatusUsed      ConditionStatus = "used"
	ConditionStatusReserved  ConditionStatus = "reserved"
	ConditionStatusExcess    ConditionStatus = "excess"
	ConditionStatusAvailable ConditionStatus = "available"
)

// ConditionStatuses lists the settable condition statuses.
var ConditionStatuses = []ConditionStatus{
	ConditionStatusUsed,
	ConditionStatusReserved,
	ConditionStatusExcess,
	ConditionStatusAvailable,
}

// ParseConditionStatus returns the condition status named by s. An empty
// string is the unset status.
func ParseConditionStatus(s string) (ConditionStatus, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ConditionStatusNone, true
	}
	for _, cs := range ConditionStatuses {
		if strings.EqualFold(string(cs), s) {
			return cs, true
		}
	}
	return "", false
}

// ConditionEntry is the quantity held in one stock condition.
type ConditionEntry struct {
	Kind   ConditionKind   `json:"type"`
	Qty    int             `json:"qty"`
	Status ConditionStatus `json:"status"`
}

// BreakdownEntry is one user-authored line explaining part of QtyUsed.
type BreakdownEntry struct {
	Condition string `json:"condition"`
	Qty       int    `json:"qty"`
}

// InventoryRecord is one stock entry. ID is assigned by the record store.
type InventoryRecord struct {
	ID               string                        `json:"id,omitempty"`
	Type             string                        `json:"type"`
	Description      string                        `json:"description"`
	QtyTotal         int                           `json:"qtyTotal"`
	Status           Status                        `json:"status"`
	Source           string                        `json:"source"`
	From             string                        `json:"from"`
	To               string                        `json:"to"`
	LocationUsed     string                        `json:"locationUsed"`
	QtyUsed          int                           `json:"qtyUsed"`
	QtyExcess        int                           `json:"qtyExcess"`
	Conditions       [NumConditions]ConditionEntry `json:"conditions"`
	QtyUsedBreakdown []BreakdownEntry              `json:"qtyUsedBreakdown"`
	ImageURL         string                        `json:"imageUrl"`
	CreatedAt        time.Time                     `json:"createdAt"`
	UpdatedAt        time.Time                     `json:"updatedAt"`
}

// NewRecord returns the default shape of an empty form.
func NewRecord() InventoryRecord {
	r := InventoryRecord{
		Status:           StatusAvailable,
		QtyUsedBreakdown: []BreakdownEntry{},
	}
	r.Normalize()
	return r
}

// Normalize pins the condition kinds to their fixed order, clamps quantities
// to 0..MaxQty and fills in an empty status. Stored documents written
// by older clients may be missing any of these.
func (r *InventoryRecord) Normalize() {
	for i := range r.Conditions {
		r.Conditions[i].Kind = ConditionKinds[i]
		r.Conditions[i].Qty = clampQty(r.Conditions[i].Qty)
	}
	if r.Status == "" {
		r.Status = StatusAvailable
	}
	r.QtyTotal = clampQty(r.QtyTotal)
	r.QtyUsed = clampQty(r.QtyUsed)
	r.QtyExcess = clampQty(r.QtyExcess)
	if r.QtyUsedBreakdown == nil {
		r.QtyUsedBreakdown = []BreakdownEntry{}
	}
	for i := range r.QtyUsedBreakdown {
		r.QtyUsedBreakdown[i].Qty = clampQty(r.QtyUsedBreakdown[i].Qty)
	}
}

// Clone returns a deep copy of the record.
func (r InventoryRecord) Clone() InventoryRecord {
	out := r
	out.QtyUsedBreakdown = make([]BreakdownEntry, len(r.QtyUsedBreakdown))
	copy(out.QtyUsedBreakdown, r.QtyUsedBreakdown)
	return out
}

// Validate checks the quantity invariant QtyTotal >= QtyUsed + QtyExcess.
func (r InventoryRecord) Validate() error {
	if r.QtyTotal < 0 || r.QtyUsed < 0 || r.QtyExcess < 0 {
		return fmt.Errorf("%w: quantities must not be negative", ErrInvalidRecord)
	}
	// Compared without adding so large values cannot wrap around.
	if r.QtyUsed > r.QtyTotal || r.QtyExcess > r.QtyTotal-r.QtyUsed {
		return fmt.Errorf("%w: used (%d) plus excess (%d) exceeds total (%d)",
			ErrInvalidRecord, r.QtyUsed, r.QtyExcess, r.QtyTotal)
	}
	return nil
}

// BreakdownSum returns the sum of the used-quantity breakdown.
func (r InventoryRecord) BreakdownSum() int {
	sum := 0
	for _, b := range r.QtyUsedBreakdown {
		sum += b.Qty
	}
	return sum
}

// BreakdownMismatch reports whether a non-empty breakdown does not add up to
// QtyUsed. The breakdown is advisory, so this is never an error.
func (r InventoryRecord) BreakdownMismatch() bool {
	return len(r.QtyUsedBreakdown) > 0 && r.BreakdownSum() != r.QtyUsed
}

// MaxQty is the largest quantity a record field can hold. Sums over a list
// of records stay far from overflow.
const MaxQty = 1_000_000_000

func clampQty(n int) int {
	return min(max(n, 0), MaxQty)
}

// ParseQty coerces form text to a quantity. Leading digits are used; empty,
// non-numeric and negative input becomes zero, and anything above MaxQty
// becomes MaxQty.
func ParseQty(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Only out-of-range errors are possible for a run of digits.
		return MaxQty
	}
	return clampQty(n)
}
