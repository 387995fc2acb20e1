package server

import (
	"github.com/matst80/killu-finder/pkg/search"
	"github.com/matst80/killu-finder/pkg/types"
)

type SearchResponse struct {
	Selection types.FacetSelection `json:"selection"`
	Results   types.ResultSet      `json:"results"`
	Slots     types.Slots          `json:"slots"`
	Cached    bool                 `json:"cached"`
	Status    search.Status        `json:"status"`
	Stale     bool                 `json:"stale,omitempty"`
}

type StateResponse struct {
	search.State
	Slots types.Slots `json:"slots"`
}

type OptionsResponse struct {
	PriceRanges      []types.PriceRange      `json:"priceRanges"`
	OperatingSystems []types.OperatingSystem `json:"operatingSystems"`
	Preferences      []types.Priority        `json:"preferences"`
}

type RestoreResponse struct {
	Restored bool            `json:"restored"`
	Search   *SearchResponse `json:"search,omitempty"`
}
