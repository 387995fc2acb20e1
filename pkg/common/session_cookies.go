package common

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/matst80/killu-finder/pkg/types"
)

const SessionCookie = "sid"

func setSessionCookie(w http.ResponseWriter, r *http.Request, sessionId string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionId,
		Domain:   strings.TrimPrefix(hostname(r.Host), "."),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		MaxAge:   30 * 24 * 3600,
		Path:     "/",
	})
}

func hostname(host string) string {
	if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.Contains(host[i:], "]") {
		return host[:i]
	}
	return host
}

// HandleSessionCookie returns the session id from the sid cookie, issuing a
// new one (and tracking the session) when missing or malformed.
func HandleSessionCookie(trk types.Tracking, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	sessionId := uuid.NewString()
	if trk != nil {
		go trk.TrackSession(sessionId, r)
	}
	setSessionCookie(w, r, sessionId)
	return sessionId
}
