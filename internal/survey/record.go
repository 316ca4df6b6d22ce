// Package survey defines the labor-force survey domain: the immutable Record,
// the optional-field Filter, distinct-value derivation for dropdowns, and the
// small-cell suppression policy.
package survey

import (
	"context"
	"sort"
	"strings"
)

// Record is a single survey observation. Records are bulk-loaded once at
// startup and never mutated afterwards.
type Record struct {
	State            string `json:"state"`
	Gender           string `json:"gender"`
	Age              int    `json:"age"`
	Year             string `json:"year"`
	EmploymentStatus string `json:"employment_status"`
	Wage             int    `json:"wage"`
}

// Column names in canonical export order. Every formatter emits columns in
// exactly this order.
const (
	ColumnState            = "state"
	ColumnGender           = "gender"
	ColumnAge              = "age"
	ColumnYear             = "year"
	ColumnEmploymentStatus = "employment_status"
	ColumnWage             = "wage"
)

// Columns lists the export column order.
var Columns = []string{ColumnState, ColumnGender, ColumnAge, ColumnYear, ColumnEmploymentStatus, ColumnWage}

// FilterColumns lists the columns a Filter may constrain, and therefore the
// columns whose distinct values the explore page offers as dropdowns.
var FilterColumns = []string{ColumnState, ColumnGender, ColumnEmploymentStatus, ColumnYear}

// Store is the read surface over the loaded dataset. Implementations are
// written once at boot and read-only thereafter; Query and All return records
// in store order and callers must not assume any ordering beyond that.
type Store interface {
	// Replace discards any existing rows and bulk-loads the given records.
	Replace(ctx context.Context, records []Record) error
	// LoadIfEmpty bulk-loads only when the store holds no rows, reporting
	// whether a load happened.
	LoadIfEmpty(ctx context.Context, records []Record) (bool, error)
	// Query returns the records matching every set field of the filter.
	Query(ctx context.Context, filter Filter) ([]Record, error)
	// All returns every record unconditionally.
	All(ctx context.Context) ([]Record, error)
	// Distinct returns the sorted distinct non-empty values of a filterable column.
	Distinct(ctx context.Context, column string) ([]string, error)
	// Count reports the number of loaded records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// FieldValue returns the record's value for the named column as used by the
// filter predicate. Numeric columns are not filterable and return "".
func (r Record) FieldValue(column string) string {
	switch column {
	case ColumnState:
		return r.State
	case ColumnGender:
		return r.Gender
	case ColumnYear:
		return r.Year
	case ColumnEmploymentStatus:
		return r.EmploymentStatus
	default:
		return ""
	}
}

// DistinctValues derives the sorted set of distinct non-empty trimmed values
// of a filterable column. Cost is linear in the dataset; acceptable because
// the dataset is small and static.
func DistinctValues(records []Record, column string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		v := strings.TrimSpace(r.FieldValue(column))
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
