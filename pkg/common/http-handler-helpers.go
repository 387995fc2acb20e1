package common

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/types"
	"go.uber.org/zap"
)

type Encoder interface {
	Encode(v any) error
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request, sessionId string, enc Encoder) error

// JsonHandler resolves the session cookie and hands the request a JSON
// encoder. Returned errors are logged, the handler owns the response.
func JsonHandler(trk types.Tracking, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		sessionId := HandleSessionCookie(trk, w, r)
		DefaultHeaders(w, r)

		if err := fn(w, r, sessionId, sonic.ConfigStd.NewEncoder(w)); err != nil {
			logger.Log.Warn("error handling request",
				zap.String("path", r.URL.Path),
				zap.String("session", sessionId),
				zap.Error(err))
		}
	}
}

func DefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes status and a JSON error body.
func WriteError(w http.ResponseWriter, enc Encoder, status int, err error) error {
	w.WriteHeader(status)
	return enc.Encode(ErrorResponse{Error: err.Error()})
}
