package storage

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewFirebaseApp uses the service account file when given, otherwise the
// application default credentials.
func NewFirebaseApp(ctx context.Context, projectId, credentialsFile string) (*firebase.App, error) {
	var cfg *firebase.Config
	if projectId != "" {
		cfg = &firebase.Config{ProjectID: projectId}
	}
	if credentialsFile != "" {
		return firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	}
	return firebase.NewApp(ctx, cfg)
}
