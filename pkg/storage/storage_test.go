package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matst80/killu-finder/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phone(id, device, filtro, os string, metrics map[string]any) types.PhoneRecord {
	fields := map[string]any{
		"Device": device,
		"Filtro": filtro,
		"OS":     os,
	}
	for k, v := range metrics {
		fields[k] = v
	}
	return types.PhoneRecord{ID: id, Fields: fields}
}

func catalogue() *MemoryPhoneStore {
	return NewMemoryPhoneStore(
		phone("1", "iPhone SE", "0-$200", "ios", map[string]any{"Dxo_Camera": 101.0, "Antutu": 700000.0}),
		phone("2", "Galaxy A15", "0-$200", "android", map[string]any{"Dxo_Camera": 88.0, "Battery_Life_Nano": 55.0}),
		phone("3", "Redmi 13", "0-$200", "android", map[string]any{"Dxo_Camera": 92.0, "Battery_Life_Nano": 61.0}),
		phone("4", "Moto G", "0-$200", "android", map[string]any{"Battery_Life_Nano": 70.0}),
		phone("5", "iPhone 15", "$800 o más", "ios", map[string]any{"Dxo_Camera": 145.0}),
		phone("6", "Pixel 8a", "0-$200", "android", map[string]any{"Dxo_Camera": 120.0}),
	)
}

func ids(records []types.PhoneRecord) []string {
	ret := make([]string, len(records))
	for i, r := range records {
		ret[i] = r.ID
	}
	return ret
}

func TestMemoryPhoneStore_FilterAndOrder(t *testing.T) {
	s := catalogue()
	res, err := s.GetPhones(context.Background(), types.BuildQuery(types.FacetSelection{
		PriceRange: types.PriceUpTo200,
		OS:         types.OSAndroid,
		Preference: types.PriorityCamera,
	}))
	require.NoError(t, err)
	// Moto G has no camera score and is left out
	assert.Equal(t, []string{"6", "3", "2"}, ids(res))
}

func TestMemoryPhoneStore_NoOrder(t *testing.T) {
	s := catalogue()
	q := types.BuildQuery(types.FacetSelection{OS: types.OSiOS})
	q.Limit = 0
	res, err := s.GetPhones(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "5"}, ids(res))
}

func TestMemoryPhoneStore_Limit(t *testing.T) {
	s := catalogue()
	res, err := s.GetPhones(context.Background(), types.BuildQuery(types.FacetSelection{Preference: types.PriorityBattery}))
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2"}, ids(res))

	asc := types.QuerySpec{OrderByField: "Battery_Life_Nano", OrderDirection: types.Ascending, Limit: 1}
	res, err = s.GetPhones(context.Background(), asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(res))
}

func TestMemoryPhoneStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := catalogue().GetPhones(ctx, types.QuerySpec{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryPhoneStore_Upsert(t *testing.T) {
	s := catalogue()
	s.Upsert(phone("1", "iPhone SE 2", "0-$200", "ios", nil), phone("7", "Nokia", "0-$200", "android", nil))
	all := s.All()
	assert.Len(t, all, 7)
	assert.Equal(t, "iPhone SE 2", all[0].String("Device"))
}

func TestDiskStorage_RoundTrip(t *testing.T) {
	disk := NewDiskStorage(filepath.Join(t.TempDir(), "nested"))
	docs := []map[string]any{
		{"id": "a", "Device": "Pixel", "Filtro": "0-$200", "OS": "android", "Antutu": 500000},
		{"Device": "Nameless", "OS": "ios"},
	}
	require.NoError(t, disk.SaveJson(docs, "phones.json"))

	store, err := LoadMemoryPhoneStore(disk, "phones.json")
	require.NoError(t, err)
	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "1", all[1].ID)
	_, hasId := all[0].Fields["id"]
	assert.False(t, hasId)
	v, ok := all[0].Number("Antutu")
	assert.True(t, ok)
	assert.Equal(t, 500000.0, v)

	entries, err := os.ReadDir(disk.RootFolder)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed")
}

func TestDiskStorage_Missing(t *testing.T) {
	_, err := LoadMemoryPhoneStore(NewDiskStorage(t.TempDir()), "nope.json")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMemoryUserStore(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	err := s.SaveUserPreferences(ctx, "u1", types.FacetSelection{OS: types.OSiOS})
	assert.ErrorIs(t, err, types.ErrUserNotFound)

	require.NoError(t, s.EnsureUserProfile(ctx, types.Identity{UID: "u1", Email: "a@b.c", DisplayName: "Ana"}))
	require.NoError(t, s.SaveUserPreferences(ctx, "u1", types.FacetSelection{OS: types.OSiOS, Preference: types.PriorityCamera}))
	require.NoError(t, s.UpdateNotificationSettings(ctx, "u1", types.DefaultNotificationSettings()))
	bio := "hola"
	require.NoError(t, s.SaveExtendedProfile(ctx, "u1", types.ExtendedProfile{Bio: &bio}))

	p, err := s.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, "hola", p.Bio)
	assert.Equal(t, types.FacetSelection{OS: types.OSiOS, Preference: types.PriorityCamera}, p.Preferences)
	require.NotNil(t, p.NotificationSettings)
	assert.True(t, p.NotificationSettings.PushNotifications)
	assert.False(t, p.UpdatedAt.IsZero())

	created := p.CreatedAt
	require.NoError(t, s.EnsureUserProfile(ctx, types.Identity{UID: "u1"}))
	p, _ = s.GetUserProfile(ctx, "u1")
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, "Ana", p.DisplayName)

	_, err = s.GetUserProfile(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestPreferencesValue(t *testing.T) {
	v := preferencesValue(types.FacetSelection{PriceRange: types.Price200To400})
	assert.Equal(t, "$200-$400", v["priceRange"])
	assert.Nil(t, v["os"])
	assert.Nil(t, v["preference"])
}
