package types

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/schema"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

type selectionRequest struct {
	PriceRange string `json:"priceRange" schema:"priceRange"`
	OS         string `json:"os" schema:"os"`
	Preference string `json:"preference" schema:"preference"`
}

type ToggleRequest struct {
	Facet Facet  `json:"facet"`
	Value string `json:"value"`
}

// SelectionFromRequest reads a selection from the query string on GET and
// from a JSON body otherwise.
func SelectionFromRequest(r *http.Request) (FacetSelection, error) {
	sr := selectionRequest{}
	var err error
	if r.Method == http.MethodGet {
		err = selectionFromQuery(r.URL.Query(), &sr)
	} else {
		err = json.NewDecoder(r.Body).Decode(&sr)
	}
	if err != nil {
		return FacetSelection{}, err
	}
	return ParseSelection(sr.PriceRange, sr.OS, sr.Preference)
}

func selectionFromQuery(query url.Values, result *selectionRequest) error {
	return decoder.Decode(result, query)
}

func ToggleFromRequest(r *http.Request) (ToggleRequest, error) {
	var t ToggleRequest
	err := json.NewDecoder(r.Body).Decode(&t)
	return t, err
}
