package fitment

import "strings"

// Dimension names one of the string columns of a fitment row
type Dimension string

const (
	DimensionMake    Dimension = "make"
	DimensionModel   Dimension = "model"
	DimensionTrim    Dimension = "trim"
	DimensionChassis Dimension = "chassis"
)

// Query is a vehicle filter. Empty strings and a nil year leave that
// dimension unconstrained.
type Query struct {
	Year    *int   `form:"year" json:"year,omitempty"`
	Make    string `form:"make" json:"make,omitempty"`
	Model   string `form:"model" json:"model,omitempty"`
	Trim    string `form:"trim" json:"trim,omitempty"`
	Chassis string `form:"chassis" json:"chassis,omitempty"`
}

// IsEmpty reports whether the query constrains nothing. Callers skip
// fitment filtering entirely for an empty query.
func (q Query) IsEmpty() bool {
	return q.Year == nil &&
		strings.TrimSpace(q.Make) == "" &&
		strings.TrimSpace(q.Model) == "" &&
		strings.TrimSpace(q.Trim) == "" &&
		strings.TrimSpace(q.Chassis) == ""
}

// Matches reports whether a single fitment row satisfies the query
func Matches(f ProductFitment, q Query) bool {
	if !nameMatches(f.Make, q.Make) || !nameMatches(f.Model, q.Model) {
		return false
	}
	if !optionalMatches(f.Trim, q.Trim) || !optionalMatches(f.Chassis, q.Chassis) {
		return false
	}
	if q.Year != nil {
		year := *q.Year
		if f.YearFrom != nil && *f.YearFrom > year {
			return false
		}
		if f.YearTo != nil && *f.YearTo < year {
			return false
		}
	}
	return true
}

// AnyMatches is the OR across rows: a product fits when any of its rows matches
func AnyMatches(rows []ProductFitment, q Query) bool {
	for _, row := range rows {
		if Matches(row, q) {
			return true
		}
	}
	return false
}

// FilterProducts keeps the gids whose rows satisfy the query, preserving gid order
func FilterProducts(gids []string, rows []ProductFitment, q Query) []string {
	if q.IsEmpty() {
		return gids
	}
	byProduct := make(map[string][]ProductFitment, len(gids))
	for _, row := range rows {
		byProduct[row.ProductGID] = append(byProduct[row.ProductGID], row)
	}
	out := make([]string, 0, len(gids))
	for _, gid := range gids {
		if AnyMatches(byProduct[gid], q) {
			out = append(out, gid)
		}
	}
	return out
}

func nameMatches(stored, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(stored), want)
}

func optionalMatches(stored *string, want string) bool {
	if strings.TrimSpace(want) == "" {
		return true
	}
	if stored == nil {
		return false
	}
	return nameMatches(*stored, want)
}
