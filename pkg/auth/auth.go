package auth

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/types"
	"go.uber.org/zap"
)

type contextKey struct{}

// FirebaseAuthenticator verifies Firebase ID tokens issued to the web client.
type FirebaseAuthenticator struct {
	client *fbauth.Client
}

func NewFirebaseAuthenticator(client *fbauth.Client) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{client: client}
}

func (a *FirebaseAuthenticator) Verify(ctx context.Context, token string) (*types.Identity, error) {
	t, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	id := &types.Identity{UID: t.UID}
	if v, ok := t.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := t.Claims["name"].(string); ok {
		id.DisplayName = v
	}
	if v, ok := t.Claims["picture"].(string); ok {
		id.PhotoURL = v
	}
	return id, nil
}

// OnIdentity is called once per request carrying a verified identity.
type OnIdentity func(ctx context.Context, id types.Identity)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware attaches the verified identity to the request context. Requests
// without a valid token continue anonymously.
func Middleware(a types.Authenticator, onIdentity OnIdentity, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || a == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := a.Verify(r.Context(), token)
		if err != nil {
			logger.Log.Debug("ignoring invalid id token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if onIdentity != nil {
			onIdentity(r.Context(), *id)
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func WithIdentity(ctx context.Context, id *types.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *types.Identity {
	id, _ := ctx.Value(contextKey{}).(*types.Identity)
	return id
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
