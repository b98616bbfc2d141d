package issue

import "time"

// Status is the workflow state of an issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusClosed     Status = "closed"
)

// Statuses lists the accepted statuses in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusClosed}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Issue is the single tracked entity.
type Issue struct {
	ID          int64     `json:"id" bson:"id"`
	Title       string    `json:"title" bson:"title"`
	Description *string   `json:"description" bson:"description"`
	Status      Status    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// NewIssue carries the fields accepted on creation.
type NewIssue struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status,omitempty"`
}

// Filter narrows a listing. Zero values mean "no predicate".
type Filter struct {
	Status Status
	Search string
}

// Patch is a partial update. Only fields that are Set are written.
type Patch struct {
	Title       Optional[string] `json:"title,omitzero"`
	Description Optional[string] `json:"description,omitzero"`
	Status      Optional[Status] `json:"status,omitzero"`
}

// Empty reports whether the patch touches no field.
func (p Patch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set
}

// Field is a (column, value) pair produced from a patch.
type Field struct {
	Column string
	Value  any
}

// Fields returns the columns touched by the patch in a fixed order
// (title, description, status). A null description yields a nil value.
func (p Patch) Fields() []Field {
	fields := make([]Field, 0, 3)
	if p.Title.Set {
		fields = append(fields, Field{Column: "title", Value: p.Title.Value})
	}
	if p.Description.Set {
		if p.Description.Null {
			fields = append(fields, Field{Column: "description", Value: nil})
		} else {
			fields = append(fields, Field{Column: "description", Value: p.Description.Value})
		}
	}
	if p.Status.Set {
		fields = append(fields, Field{Column: "status", Value: string(p.Status.Value)})
	}
	return fields
}

// Apply copies the set fields of p onto i. Timestamps are left to the caller.
func (p Patch) Apply(i *Issue) {
	if p.Title.Set {
		i.Title = p.Title.Value
	}
	if p.Description.Set {
		if p.Description.Null {
			i.Description = nil
		} else {
			d := p.Description.Value
			i.Description = &d
		}
	}
	if p.Status.Set {
		i.Status = p.Status.Value
	}
}
