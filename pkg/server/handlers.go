package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/matst80/killu-finder/pkg/auth"
	"github.com/matst80/killu-finder/pkg/common"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/search"
	"github.com/matst80/killu-finder/pkg/types"
	"go.uber.org/zap"
)

func decodeBody(r *http.Request, v any) error {
	return sonic.ConfigStd.NewDecoder(r.Body).Decode(v)
}

// runSearch answers with the ranked phones for selection.
func (ws *WebServer) runSearch(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder, selection types.FacetSelection, persist bool) (*SearchResponse, error) {
	p := ws.Sessions.Get(sessionId)
	result, err := p.Search(r.Context(), selection)
	return ws.searchResponse(w, r, sessionId, enc, p, result, err, persist)
}

// searchResponse maps a pipeline outcome to the api response. Superseded
// searches still answer with their results, flagged stale.
func (ws *WebServer) searchResponse(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder, p *search.Pipeline, result *search.SearchResult, err error, persist bool) (*SearchResponse, error) {
	stale := errors.Is(err, search.ErrSuperseded)
	if err != nil && !stale {
		status := http.StatusInternalServerError
		if errors.Is(err, search.ErrSearchFailed) {
			status = http.StatusBadGateway
		}
		return nil, common.WriteError(w, enc, status, err)
	}

	selection := result.Selection
	if ws.Tracking != nil {
		go ws.Tracking.TrackSearch(sessionId, selection, len(result.Results), result.Cached, r)
	}
	if id := auth.IdentityFromContext(r.Context()); persist && id != nil && !stale {
		ws.preferences.Add(id.UID, selection)
	}

	return &SearchResponse{
		Selection: selection,
		Results:   result.Results,
		Slots:     search.ReorderForDisplay(result.Results),
		Cached:    result.Cached,
		Status:    p.State().Status,
		Stale:     stale,
	}, nil
}

func (ws *WebServer) Search(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	selection, err := types.SelectionFromRequest(r)
	if err != nil {
		return common.WriteError(w, enc, http.StatusBadRequest, err)
	}
	res, err := ws.runSearch(w, r, sessionId, enc, selection, true)
	if res == nil {
		return err
	}
	return enc.Encode(res)
}

// Toggle flips one facet of the session's current selection.
func (ws *WebServer) Toggle(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	req, err := types.ToggleFromRequest(r)
	if err != nil {
		return common.WriteError(w, enc, http.StatusBadRequest, err)
	}
	p := ws.Sessions.Get(sessionId)
	result, err := p.Toggle(r.Context(), req.Facet, req.Value)
	if errors.Is(err, types.ErrUnknownFacetValue) {
		return common.WriteError(w, enc, http.StatusBadRequest, err)
	}
	res, err := ws.searchResponse(w, r, sessionId, enc, p, result, err, true)
	if res == nil {
		return err
	}
	return enc.Encode(res)
}

func stateResponse(p *search.Pipeline) StateResponse {
	state := p.State()
	return StateResponse{
		State: state,
		Slots: search.ReorderForDisplay(state.Results),
	}
}

func (ws *WebServer) State(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	return enc.Encode(stateResponse(ws.Sessions.Get(sessionId)))
}

func (ws *WebServer) Reset(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	p := ws.Sessions.Get(sessionId)
	p.Reset(r.Context())
	return enc.Encode(stateResponse(p))
}

func (ws *WebServer) Options(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	return enc.Encode(OptionsResponse{
		PriceRanges:      types.PriceRanges,
		OperatingSystems: types.OperatingSystems,
		Preferences:      types.Priorities,
	})
}

func (ws *WebServer) profileError(w http.ResponseWriter, enc common.Encoder, err error) error {
	if errors.Is(err, types.ErrUserNotFound) {
		return common.WriteError(w, enc, http.StatusNotFound, err)
	}
	return common.WriteError(w, enc, http.StatusInternalServerError, err)
}

func (ws *WebServer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ws.PersistTimeout)
}

func (ws *WebServer) GetProfile(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	id := auth.IdentityFromContext(r.Context())
	ctx, cancel := ws.withTimeout(r.Context())
	defer cancel()
	profile, err := ws.Profiles.GetUserProfile(ctx, id.UID)
	if err != nil {
		return ws.profileError(w, enc, err)
	}
	return enc.Encode(profile)
}

func (ws *WebServer) UpdateProfile(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	id := auth.IdentityFromContext(r.Context())
	var update types.ExtendedProfile
	if err := decodeBody(r, &update); err != nil {
		return common.WriteError(w, enc, http.StatusBadRequest, err)
	}
	ctx, cancel := ws.withTimeout(r.Context())
	defer cancel()
	if err := ws.Profiles.SaveExtendedProfile(ctx, id.UID, update); err != nil {
		return ws.profileError(w, enc, err)
	}
	profile, err := ws.Profiles.GetUserProfile(ctx, id.UID)
	if err != nil {
		return ws.profileError(w, enc, err)
	}
	return enc.Encode(profile)
}

func (ws *WebServer) UpdateNotifications(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	id := auth.IdentityFromContext(r.Context())
	settings := types.DefaultNotificationSettings()
	if err := decodeBody(r, &settings); err != nil {
		return common.WriteError(w, enc, http.StatusBadRequest, err)
	}
	ctx, cancel := ws.withTimeout(r.Context())
	defer cancel()
	if err := ws.Profiles.UpdateNotificationSettings(ctx, id.UID, settings); err != nil {
		return ws.profileError(w, enc, err)
	}
	if settings.PushNotifications && settings.DeviceToken != "" && ws.Pusher != nil {
		go ws.sendConfirmation(id.UID, settings.DeviceToken)
	}
	return enc.Encode(settings)
}

func (ws *WebServer) sendConfirmation(uid, token string) {
	ctx, cancel := ws.withTimeout(context.Background())
	defer cancel()
	if err := ws.Pusher.SendConfirmation(ctx, token); err != nil {
		logger.Log.Warn("failed to send push confirmation", zap.String("uid", uid), zap.Error(err))
	}
}

// Restore runs a search with the preferences saved in the user profile.
func (ws *WebServer) Restore(w http.ResponseWriter, r *http.Request, sessionId string, enc common.Encoder) error {
	id := auth.IdentityFromContext(r.Context())
	ctx, cancel := ws.withTimeout(r.Context())
	profile, err := ws.Profiles.GetUserProfile(ctx, id.UID)
	cancel()
	if err != nil {
		return ws.profileError(w, enc, err)
	}
	selection := profile.Preferences
	if selection.IsEmpty() {
		return enc.Encode(RestoreResponse{Restored: false})
	}
	if err = selection.Validate(); err != nil {
		return common.WriteError(w, enc, http.StatusUnprocessableEntity, err)
	}
	res, err := ws.runSearch(w, r, sessionId, enc, selection, false)
	if res == nil {
		return err
	}
	return enc.Encode(RestoreResponse{Restored: true, Search: res})
}
