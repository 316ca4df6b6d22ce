package survey

import "strings"

// Filter is a transient per-request value object. Each field is an optional
// equality constraint; an empty field imposes no constraint. There is no
// range, partial-match, or negation support.
type Filter struct {
	State            string `json:"state,omitempty"`
	Gender           string `json:"gender,omitempty"`
	EmploymentStatus string `json:"employment_status,omitempty"`
	Year             string `json:"year,omitempty"`
}

// IsZero reports whether no field is constrained.
func (f Filter) IsZero() bool {
	return f.State == "" && f.Gender == "" && f.EmploymentStatus == "" && f.Year == ""
}

// Conditions returns the set fields as column/value pairs. The order is
// fixed but immaterial: the predicate is a pure conjunction.
func (f Filter) Conditions() []Condition {
	var conds []Condition
	if f.State != "" {
		conds = append(conds, Condition{Column: ColumnState, Value: f.State})
	}
	if f.Gender != "" {
		conds = append(conds, Condition{Column: ColumnGender, Value: f.Gender})
	}
	if f.EmploymentStatus != "" {
		conds = append(conds, Condition{Column: ColumnEmploymentStatus, Value: f.EmploymentStatus})
	}
	if f.Year != "" {
		conds = append(conds, Condition{Column: ColumnYear, Value: f.Year})
	}
	return conds
}

// Condition is a single column equality constraint.
type Condition struct {
	Column string
	Value  string
}

// Matches reports whether the record satisfies every set field.
func (f Filter) Matches(r Record) bool {
	for _, c := range f.Conditions() {
		if r.FieldValue(c.Column) != c.Value {
			return false
		}
	}
	return true
}

// Normalize trims surrounding whitespace from every field.
func (f Filter) Normalize() Filter {
	return Filter{
		State:            strings.TrimSpace(f.State),
		Gender:           strings.TrimSpace(f.Gender),
		EmploymentStatus: strings.TrimSpace(f.EmploymentStatus),
		Year:             strings.TrimSpace(f.Year),
	}
}
