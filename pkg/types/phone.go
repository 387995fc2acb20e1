package types

import (
	"strconv"
	"strings"
)

// PhoneRecord is a raw document from the phone collection.
type PhoneRecord struct {
	ID     string
	Fields map[string]any
}

func (p PhoneRecord) String(field string) string {
	switch v := p.Fields[field].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// Number reads a numeric field, accepting numbers stored as text ("$1,299").
func (p PhoneRecord) Number(field string) (float64, bool) {
	switch v := p.Fields[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
		f, err := strconv.ParseFloat(clean, 64)
		return f, err == nil
	}
	return 0, false
}

type DisplayPhone struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
	LinkURL  string  `json:"linkUrl,omitempty"`
}

func Project(p PhoneRecord) DisplayPhone {
	price, _ := p.Number("Precio")
	return DisplayPhone{
		ID:       p.ID,
		Name:     p.String("Device"),
		Price:    price,
		ImageURL: p.String("Link_IMG"),
		LinkURL:  p.String("Link"),
	}
}

// ResultSet holds at most ResultLimit phones, best ranked first.
type ResultSet []DisplayPhone

// Slot is one display position, nil when empty.
type Slot = *DisplayPhone

// Slots are left, center (highlighted) and right.
type Slots [3]Slot
