package types

import (
	"errors"
	"fmt"
)

var ErrUnknownFacetValue = errors.New("unknown facet value")

type PriceRange string

const (
	PriceUpTo200    PriceRange = "0-$200"
	Price200To400   PriceRange = "$200-$400"
	Price400To600   PriceRange = "$400-$600"
	Price600To800   PriceRange = "$600-$800"
	Price800AndMore PriceRange = "$800 o más"
)

// PriceRanges in display order.
var PriceRanges = []PriceRange{PriceUpTo200, Price200To400, Price400To600, Price600To800, Price800AndMore}

type OperatingSystem string

const (
	OSiOS     OperatingSystem = "iOS"
	OSAndroid OperatingSystem = "Android"
	OSAny     OperatingSystem = "Da igual"
)

var OperatingSystems = []OperatingSystem{OSiOS, OSAndroid, OSAny}

type Priority string

const (
	PriorityBattery     Priority = "Batería"
	PriorityCamera      Priority = "Cámara"
	PriorityPerformance Priority = "Rendimiento"
)

var Priorities = []Priority{PriorityBattery, PriorityCamera, PriorityPerformance}

// osFilterValues maps an OS label to the value stored in the phone documents.
// OSAny is deliberately absent: it never becomes a filter.
var osFilterValues = map[OperatingSystem]string{
	OSiOS:     "ios",
	OSAndroid: "android",
}

var priorityOrderFields = map[Priority]string{
	PriorityCamera:      "Dxo_Camera",
	PriorityBattery:     "Battery_Life_Nano",
	PriorityPerformance: "Antutu",
}

func (p PriceRange) Valid() bool {
	for _, v := range PriceRanges {
		if v == p {
			return true
		}
	}
	return false
}

func (o OperatingSystem) Valid() bool {
	for _, v := range OperatingSystems {
		if v == o {
			return true
		}
	}
	return false
}

// FilterValue returns the document value for the OS, false when the OS does
// not constrain the query (absent or "Da igual").
func (o OperatingSystem) FilterValue() (string, bool) {
	v, ok := osFilterValues[o]
	return v, ok
}

func (p Priority) Valid() bool {
	_, ok := priorityOrderFields[p]
	return ok
}

// OrderField is the ranking field for the priority, empty when absent.
func (p Priority) OrderField() string {
	return priorityOrderFields[p]
}

type Facet string

const (
	FacetPriceRange Facet = "priceRange"
	FacetOS         Facet = "os"
	FacetPreference Facet = "preference"
)

// FacetSelection is the user's current choice. The zero value of each field
// means the facet is not selected.
type FacetSelection struct {
	PriceRange PriceRange      `json:"priceRange" firestore:"priceRange" schema:"priceRange"`
	OS         OperatingSystem `json:"os" firestore:"os" schema:"os"`
	Preference Priority        `json:"preference" firestore:"preference" schema:"preference"`
}

func ParseSelection(priceRange, os, preference string) (FacetSelection, error) {
	s := FacetSelection{
		PriceRange: PriceRange(priceRange),
		OS:         OperatingSystem(os),
		Preference: Priority(preference),
	}
	return s, s.Validate()
}

func (s FacetSelection) Validate() error {
	if s.PriceRange != "" && !s.PriceRange.Valid() {
		return fmt.Errorf("%w: priceRange %q", ErrUnknownFacetValue, s.PriceRange)
	}
	if s.OS != "" && !s.OS.Valid() {
		return fmt.Errorf("%w: os %q", ErrUnknownFacetValue, s.OS)
	}
	if s.Preference != "" && !s.Preference.Valid() {
		return fmt.Errorf("%w: preference %q", ErrUnknownFacetValue, s.Preference)
	}
	return nil
}

func (s FacetSelection) IsEmpty() bool {
	return s.PriceRange == "" && s.OS == "" && s.Preference == ""
}

// Toggle selects value for the facet, or clears the facet when value is
// already the selected one.
func (s FacetSelection) Toggle(facet Facet, value string) (FacetSelection, error) {
	switch facet {
	case FacetPriceRange:
		v := PriceRange(value)
		if !v.Valid() {
			return s, fmt.Errorf("%w: priceRange %q", ErrUnknownFacetValue, value)
		}
		if s.PriceRange == v {
			v = ""
		}
		s.PriceRange = v
	case FacetOS:
		v := OperatingSystem(value)
		if !v.Valid() {
			return s, fmt.Errorf("%w: os %q", ErrUnknownFacetValue, value)
		}
		if s.OS == v {
			v = ""
		}
		s.OS = v
	case FacetPreference:
		v := Priority(value)
		if !v.Valid() {
			return s, fmt.Errorf("%w: preference %q", ErrUnknownFacetValue, value)
		}
		if s.Preference == v {
			v = ""
		}
		s.Preference = v
	default:
		return s, fmt.Errorf("%w: facet %q", ErrUnknownFacetValue, facet)
	}
	return s, nil
}
