package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/matst80/killu-finder/pkg/types"
)

// priceBucket returns the Filtro label for a price, lower bound inclusive.
func priceBucket(price float64) types.PriceRange {
	switch {
	case price < 200:
		return types.PriceUpTo200
	case price < 400:
		return types.Price200To400
	case price < 600:
		return types.Price400To600
	case price < 800:
		return types.Price600To800
	default:
		return types.Price800AndMore
	}
}

func readCsv(r io.Reader) ([][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	return csvReader.ReadAll()
}

func parseValue(v string) any {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// normalize lowercases OS and fills Filtro from Precio when missing.
func normalize(p types.PhoneRecord) (types.PhoneRecord, bool) {
	if os := p.String(types.OSFilterField); os != "" {
		p.Fields[types.OSFilterField] = strings.ToLower(os)
	}
	if p.String(types.PriceFilterField) == "" {
		price, ok := p.Number("Precio")
		if !ok {
			return p, false
		}
		p.Fields[types.PriceFilterField] = string(priceBucket(price))
	}
	return p, true
}

// phonesFromRows maps csv rows to phones using the header row as field names.
// An "id" column is used as document id.
func phonesFromRows(rows [][]string) ([]types.PhoneRecord, []error) {
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	ret := make([]types.PhoneRecord, 0, len(rows)-1)
	var errs []error
	for i, row := range rows[1:] {
		p := types.PhoneRecord{Fields: make(map[string]any, len(header))}
		for j, name := range header {
			if j >= len(row) || row[j] == "" {
				continue
			}
			name = strings.TrimSpace(name)
			if strings.EqualFold(name, "id") {
				p.ID = strings.TrimSpace(row[j])
				continue
			}
			if name == "Precio" || name == "Device" || name == "Link" || name == "Link_IMG" || name == types.OSFilterField {
				p.Fields[name] = strings.TrimSpace(row[j])
				continue
			}
			p.Fields[name] = parseValue(row[j])
		}
		p, ok := normalize(p)
		if !ok {
			errs = append(errs, fmt.Errorf("row %d: missing or invalid Precio", i+2))
			continue
		}
		ret = append(ret, p)
	}
	return ret, errs
}

var (
	brands = map[types.OperatingSystem][]string{
		types.OSiOS:     {"iPhone"},
		types.OSAndroid: {"Galaxy", "Redmi", "Pixel", "Moto", "Xperia", "Nokia", "Honor"},
	}
	models = []string{"Lite", "Plus", "Pro", "Ultra", "Neo", "Max", "Mini"}
)

// fakePhones generates a synthetic catalogue for local development.
func fakePhones(n int, seed uint64) []types.PhoneRecord {
	f := gofakeit.New(seed)
	ret := make([]types.PhoneRecord, 0, n)
	for i := range n {
		os := types.OSAndroid
		if f.Number(0, 3) == 0 {
			os = types.OSiOS
		}
		device := fmt.Sprintf("%s %d %s", f.RandomString(brands[os]), f.Number(5, 16), f.RandomString(models))
		price := float64(f.Number(90, 1600))
		fields := map[string]any{
			"Device":            device,
			"Precio":            fmt.Sprintf("$%.0f", price),
			"OS":                string(os),
			"Dxo_Camera":        float64(f.Number(60, 160)),
			"Battery_Life_Nano": float64(f.Number(30, 80)),
			"Antutu":            float64(f.Number(150000, 2000000)),
			"Link_IMG":          f.URL(),
			"Link":              f.URL(),
		}
		p, _ := normalize(types.PhoneRecord{ID: fmt.Sprintf("fake-%04d", i+1), Fields: fields})
		ret = append(ret, p)
	}
	return ret
}

// documents converts phones to the local json file format.
func documents(phones []types.PhoneRecord) []map[string]any {
	ret := make([]map[string]any, len(phones))
	for i, p := range phones {
		doc := make(map[string]any, len(p.Fields)+1)
		for k, v := range p.Fields {
			doc[k] = v
		}
		if p.ID != "" {
			doc["id"] = p.ID
		}
		ret[i] = doc
	}
	return ret
}
