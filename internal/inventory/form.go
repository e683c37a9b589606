package inventory

import "github.com/erazemk/popis/internal/model"

// FormMode is the state of the edit form.
type FormMode int

// Form states. A form edits at most one record at a time.
const (
	FormClosed FormMode = iota
	FormCreating
	FormEditing
)

func (m FormMode) String() string {
	switch m {
	case FormClosed:
		return "closed"
	case FormCreating:
		return "creating"
	case FormEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Form is the in-progress edit. TargetID is set only in FormEditing.
type Form struct {
	Mode     FormMode
	TargetID string
	Record   model.InventoryRecord
}

// Open reports whether the form is being edited.
func (f Form) Open() bool {
	return f.Mode != FormClosed
}

func closedForm() Form {
	return Form{Mode: FormClosed, Record: model.NewRecord()}
}

func (f Form) clone() Form {
	f.Record = f.Record.Clone()
	return f
}
