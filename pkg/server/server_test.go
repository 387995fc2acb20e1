package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/matst80/killu-finder/pkg/search"
	"github.com/matst80/killu-finder/pkg/storage"
	"github.com/matst80/killu-finder/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct{}

func (mockAuthenticator) Verify(_ context.Context, token string) (*types.Identity, error) {
	if token != "user-token" {
		return nil, errors.New("invalid token")
	}
	return &types.Identity{UID: "u1", Email: "ana@example.com", DisplayName: "Ana"}, nil
}

type mockPusher struct {
	mu     sync.Mutex
	tokens []string
}

func (m *mockPusher) SendConfirmation(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *mockPusher) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}

type failingPhones struct{}

func (failingPhones) GetPhones(context.Context, types.QuerySpec) ([]types.PhoneRecord, error) {
	return nil, errors.New("firestore unavailable")
}

func record(id, device, filtro, os string, camera float64) types.PhoneRecord {
	return types.PhoneRecord{ID: id, Fields: map[string]any{
		"Device":     device,
		"Filtro":     filtro,
		"OS":         os,
		"Precio":     "$150",
		"Dxo_Camera": camera,
		"Link_IMG":   "https://img/" + id,
		"Link":       "https://shop/" + id,
	}}
}

type testServer struct {
	ws       *WebServer
	handler  http.Handler
	users    *storage.MemoryUserStore
	pusher   *mockPusher
	sessions *search.Sessions
}

func newTestServer(t *testing.T, phones types.PhoneQuery) *testServer {
	if phones == nil {
		phones = storage.NewMemoryPhoneStore(
			record("1", "Galaxy A15", "0-$200", "android", 88),
			record("2", "Redmi 13", "0-$200", "android", 92),
			record("3", "Pixel 8a", "0-$200", "android", 120),
			record("4", "Moto G", "0-$200", "android", 70),
			record("5", "iPhone SE", "0-$200", "ios", 101),
		)
	}
	sessions := search.NewSessions(func(string) *search.Pipeline {
		return search.NewPipeline(phones, nil)
	}, 0)
	users := storage.NewMemoryUserStore()
	pusher := &mockPusher{}
	ws := NewWebServer(sessions, users, time.Second)
	ws.Auth = mockAuthenticator{}
	ws.Pusher = pusher
	t.Cleanup(func() {
		ws.Close(context.Background())
		sessions.Close()
	})
	return &testServer{ws: ws, handler: ws.Handler(), users: users, pusher: pusher, sessions: sessions}
}

type client struct {
	t      *testing.T
	srv    *testServer
	cookie *http.Cookie
	token  string
}

func (s *testServer) client(t *testing.T, token string) *client {
	return &client{t: t, srv: s, token: token}
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	if c.cookie != nil {
		r.AddCookie(c.cookie)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.srv.handler.ServeHTTP(rec, r)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "sid" {
			c.cookie = cookie
		}
	}
	return rec
}

func decode[V any](t *testing.T, rec *httptest.ResponseRecorder) V {
	var v V
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func slotIds(slots types.Slots) []string {
	ret := make([]string, 0, 3)
	for _, s := range slots {
		if s == nil {
			ret = append(ret, "")
			continue
		}
		ret = append(ret, s.ID)
	}
	return ret
}

func TestSearch_Get(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "")

	rec := c.do("GET", "/api/search?priceRange=0-%24200&os=Android&preference=C%C3%A1mara", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[SearchResponse](t, rec)

	require.Len(t, res.Results, 3)
	assert.Equal(t, "3", res.Results[0].ID)
	assert.Equal(t, "Pixel 8a", res.Results[0].Name)
	assert.Equal(t, 150.0, res.Results[0].Price)
	assert.Equal(t, []string{"2", "3", "1"}, slotIds(res.Slots))
	assert.False(t, res.Cached)
	assert.Equal(t, search.Displaying, res.Status)
	require.NotNil(t, c.cookie)

	res = decode[SearchResponse](t, c.do("GET", "/api/search?priceRange=0-%24200&os=Android&preference=C%C3%A1mara", ""))
	assert.True(t, res.Cached)
}

func TestSearch_PostAndInvalid(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "")

	rec := c.do("POST", "/api/search", `{"os":"iOS"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[SearchResponse](t, rec)
	assert.Equal(t, []string{"", "5", ""}, slotIds(res.Slots))

	rec = c.do("POST", "/api/search", `{"os":"Windows"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_QueryFailure(t *testing.T) {
	srv := newTestServer(t, failingPhones{})
	rec := srv.client(t, "").do("GET", "/api/search?os=iOS", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "firestore unavailable")
}

func TestToggleAndState(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "")

	res := decode[SearchResponse](t, c.do("POST", "/api/toggle", `{"facet":"os","value":"iOS"}`))
	assert.Equal(t, types.OSiOS, res.Selection.OS)

	res = decode[SearchResponse](t, c.do("POST", "/api/toggle", `{"facet":"preference","value":"Cámara"}`))
	assert.Equal(t, types.FacetSelection{OS: types.OSiOS, Preference: types.PriorityCamera}, res.Selection)

	res = decode[SearchResponse](t, c.do("POST", "/api/toggle", `{"facet":"os","value":"iOS"}`))
	assert.Equal(t, types.FacetSelection{Preference: types.PriorityCamera}, res.Selection)

	rec := c.do("POST", "/api/toggle", `{"facet":"color","value":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	state := decode[StateResponse](t, c.do("GET", "/api/state", ""))
	assert.Equal(t, search.Displaying, state.Status)
	assert.Equal(t, types.FacetSelection{Preference: types.PriorityCamera}, state.Selection)
	assert.Len(t, state.Results, 3)

	state = decode[StateResponse](t, c.do("POST", "/api/reset", ""))
	assert.Equal(t, search.Idle, state.Status)
	assert.Empty(t, state.Results)
	assert.Equal(t, 0, srv.sessions.Get(c.cookie.Value).Cache.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.client(t, "")
	b := srv.client(t, "")

	a.do("GET", "/api/search?os=iOS", "")
	state := decode[StateResponse](t, b.do("GET", "/api/state", ""))
	assert.Equal(t, search.Idle, state.Status)
	assert.NotEqual(t, a.cookie.Value, b.cookie.Value)
}

func TestOptions(t *testing.T) {
	srv := newTestServer(t, nil)
	res := decode[OptionsResponse](t, srv.client(t, "").do("GET", "/api/options", ""))
	assert.Equal(t, types.PriceRanges, res.PriceRanges)
	assert.Equal(t, types.OperatingSystems, res.OperatingSystems)
	assert.Equal(t, types.Priorities, res.Preferences)
}

func TestSearch_PersistsPreferencesForUser(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "user-token")

	rec := c.do("GET", "/api/search?os=iOS&preference=Bater%C3%ADa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	srv.ws.preferences.Close()

	p, err := srv.users.GetUserProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, types.FacetSelection{OS: types.OSiOS, Preference: types.PriorityBattery}, p.Preferences)
}

func TestSearch_AnonymousDoesNotPersist(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.client(t, "bad-token").do("GET", "/api/search?os=iOS", "")
	srv.ws.preferences.Close()
	_, err := srv.users.GetUserProfile(context.Background(), "u1")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestProfileRequiresIdentity(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "")
	assert.Equal(t, http.StatusUnauthorized, c.do("GET", "/api/profile", "").Code)
	assert.Equal(t, http.StatusUnauthorized, c.do("POST", "/api/restore", "").Code)
}

func TestProfile(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "user-token")

	profile := decode[types.UserProfile](t, c.do("GET", "/api/profile", ""))
	assert.Equal(t, "u1", profile.UID)
	assert.True(t, profile.Preferences.IsEmpty())

	rec := c.do("PUT", "/api/profile", `{"bio":"Me gustan las fotos","phone":"+51 999"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	profile = decode[types.UserProfile](t, rec)
	assert.Equal(t, "Me gustan las fotos", profile.Bio)
	assert.Equal(t, "+51 999", profile.Phone)
	assert.Equal(t, "Ana", profile.DisplayName)
}

func TestUpdateNotifications(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "user-token")

	rec := c.do("PUT", "/api/notifications", `{"pushNotifications":true,"emailNotifications":false,"deviceToken":"fcm-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[types.NotificationSettings](t, rec)
	assert.False(t, settings.EmailNotifications)
	assert.True(t, settings.NewPhoneAlerts)

	assert.Eventually(t, func() bool {
		return len(srv.pusher.sent()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"fcm-1"}, srv.pusher.sent())

	p, err := srv.users.GetUserProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p.NotificationSettings)
	assert.Equal(t, "fcm-1", p.NotificationSettings.DeviceToken)
}

func TestRestore(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "user-token")

	res := decode[RestoreResponse](t, c.do("POST", "/api/restore", ""))
	assert.False(t, res.Restored)

	require.NoError(t, srv.users.SaveUserPreferences(context.Background(), "u1",
		types.FacetSelection{PriceRange: types.PriceUpTo200, OS: types.OSAndroid, Preference: types.PriorityCamera}))

	res = decode[RestoreResponse](t, c.do("POST", "/api/restore", ""))
	assert.True(t, res.Restored)
	require.NotNil(t, res.Search)
	assert.Equal(t, []string{"2", "3", "1"}, slotIds(res.Search.Slots))
}

func TestLatestPerUser(t *testing.T) {
	items := []preferenceUpdate{
		{UserId: "a", Selection: types.FacetSelection{OS: types.OSiOS}},
		{UserId: "b", Selection: types.FacetSelection{OS: types.OSAndroid}},
		{UserId: "a", Selection: types.FacetSelection{OS: types.OSAny}},
	}
	ret := latestPerUser(items)
	require.Len(t, ret, 2)
	assert.Equal(t, "a", ret[0].UserId)
	assert.Equal(t, types.OSAny, ret[0].Selection.OS)
	assert.Equal(t, "b", ret[1].UserId)
}

func TestHealthAndPreflight(t *testing.T) {
	srv := newTestServer(t, nil)
	c := srv.client(t, "")
	assert.Equal(t, http.StatusOK, c.do("GET", "/health", "").Code)

	rec := c.do(http.MethodOptions, "/api/search", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
