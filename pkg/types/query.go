package types

import (
	"net/url"
	"slices"
)

// ResultLimit is the number of phones shown for a query.
const ResultLimit = 3

const (
	PriceFilterField = "Filtro"
	OSFilterField    = "OS"
)

type Direction string

const (
	Descending Direction = "desc"
	Ascending  Direction = "asc"
)

// QuerySpec is the normalized request sent to the phone collection.
type QuerySpec struct {
	Filters        map[string]string `json:"filters"`
	OrderByField   string            `json:"orderByField,omitempty"`
	OrderDirection Direction         `json:"orderDirection"`
	Limit          int               `json:"limit,omitempty"`
}

// BuildQuery maps a selection to equality filters and the ranking field.
// The preference never becomes a filter.
func BuildQuery(s FacetSelection) QuerySpec {
	q := QuerySpec{
		Filters:        make(map[string]string, 2),
		OrderByField:   s.Preference.OrderField(),
		OrderDirection: Descending,
		Limit:          ResultLimit,
	}
	if s.PriceRange != "" {
		q.Filters[PriceFilterField] = string(s.PriceRange)
	}
	if v, ok := s.OS.FilterValue(); ok {
		q.Filters[OSFilterField] = v
	}
	return q
}

// FilterFields returns the filter names in a stable order.
func (q QuerySpec) FilterFields() []string {
	fields := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		fields = append(fields, k)
	}
	slices.Sort(fields)
	return fields
}

// Key serializes filters and order field so that equal specs share a key no
// matter how they were produced.
func (q QuerySpec) Key() string {
	v := url.Values{}
	for field, value := range q.Filters {
		if value == "" {
			continue
		}
		v.Set(field, value)
	}
	// Encode sorts by field name
	return v.Encode() + "|" + q.OrderByField
}
