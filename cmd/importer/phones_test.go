package main

import (
	"strings"
	"testing"

	"github.com/matst80/killu-finder/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceBucket(t *testing.T) {
	cases := map[float64]types.PriceRange{
		0:    types.PriceUpTo200,
		199:  types.PriceUpTo200,
		200:  types.Price200To400,
		599:  types.Price400To600,
		600:  types.Price600To800,
		800:  types.Price800AndMore,
		1500: types.Price800AndMore,
	}
	for price, expected := range cases {
		assert.Equal(t, expected, priceBucket(price), "price %v", price)
	}
}

const catalogue = `id;Device;Precio;OS;Dxo_Camera;Antutu
a1;Galaxy A15;$180;Android;88;400000
a2;iPhone 15;$ 1,099;iOS;145;
a3;Broken;;Android;90;1
`

func TestPhonesFromRows(t *testing.T) {
	rows, err := readCsv(strings.NewReader(catalogue))
	require.NoError(t, err)

	phones, errs := phonesFromRows(rows)
	require.Len(t, phones, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "row 4")

	assert.Equal(t, "a1", phones[0].ID)
	assert.Equal(t, "android", phones[0].String("OS"))
	assert.Equal(t, "0-$200", phones[0].String("Filtro"))
	assert.Equal(t, 88.0, phones[0].Fields["Dxo_Camera"])
	assert.Equal(t, "$180", phones[0].Fields["Precio"])

	assert.Equal(t, "ios", phones[1].String("OS"))
	assert.Equal(t, "$800 o más", phones[1].String("Filtro"))
	_, hasAntutu := phones[1].Fields["Antutu"]
	assert.False(t, hasAntutu)
}

func TestFakePhones(t *testing.T) {
	phones := fakePhones(25, 42)
	require.Len(t, phones, 25)
	for _, p := range phones {
		assert.NotEmpty(t, p.ID)
		assert.True(t, types.PriceRange(p.String("Filtro")).Valid())
		os := p.String("OS")
		assert.Contains(t, []string{"ios", "android"}, os)
		_, ok := p.Number("Dxo_Camera")
		assert.True(t, ok)
	}
	assert.Equal(t, phones, fakePhones(25, 42))
}

func TestDocuments(t *testing.T) {
	docs := documents([]types.PhoneRecord{{ID: "x", Fields: map[string]any{"Device": "Pixel"}}})
	assert.Equal(t, []map[string]any{{"id": "x", "Device": "Pixel"}}, docs)
}
