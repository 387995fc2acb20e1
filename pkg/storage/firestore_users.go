package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/matst80/killu-finder/pkg/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreUserStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreUserStore(client *firestore.Client) *FirestoreUserStore {
	return &FirestoreUserStore{client: client, collection: UserCollection}
}

func (s *FirestoreUserStore) doc(userId string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userId)
}

func notFound(err error, userId string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", types.ErrUserNotFound, userId)
	}
	return err
}

// preferencesValue stores unselected facets as null.
func preferencesValue(s types.FacetSelection) map[string]any {
	value := func(v string) any {
		if v == "" {
			return nil
		}
		return v
	}
	return map[string]any{
		"priceRange": value(string(s.PriceRange)),
		"os":         value(string(s.OS)),
		"preference": value(string(s.Preference)),
	}
}

func (s *FirestoreUserStore) SaveUserPreferences(ctx context.Context, userId string, selection types.FacetSelection) error {
	_, err := s.doc(userId).Update(ctx, []firestore.Update{
		{Path: "preferences", Value: preferencesValue(selection)},
	})
	return notFound(err, userId)
}

func (s *FirestoreUserStore) GetUserProfile(ctx context.Context, userId string) (*types.UserProfile, error) {
	snap, err := s.doc(userId).Get(ctx)
	if err != nil {
		return nil, notFound(err, userId)
	}
	profile := &types.UserProfile{}
	if err = snap.DataTo(profile); err != nil {
		return nil, err
	}
	if profile.UID == "" {
		profile.UID = userId
	}
	return profile, nil
}

// EnsureUserProfile creates the profile with empty preferences the first time
// a user is seen and bumps lastLogin afterwards.
func (s *FirestoreUserStore) EnsureUserProfile(ctx context.Context, id types.Identity) error {
	ref := s.doc(id.UID)
	_, err := ref.Get(ctx)
	if err == nil {
		_, err = ref.Set(ctx, map[string]any{"lastLogin": firestore.ServerTimestamp}, firestore.MergeAll)
		return err
	}
	if status.Code(err) != codes.NotFound {
		return err
	}
	_, err = ref.Create(ctx, map[string]any{
		"uid":         id.UID,
		"email":       id.Email,
		"displayName": id.DisplayName,
		"photoURL":    id.PhotoURL,
		"createdAt":   firestore.ServerTimestamp,
		"lastLogin":   firestore.ServerTimestamp,
		"preferences": preferencesValue(types.FacetSelection{}),
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	return err
}

func (s *FirestoreUserStore) UpdateNotificationSettings(ctx context.Context, userId string, settings types.NotificationSettings) error {
	_, err := s.doc(userId).Update(ctx, []firestore.Update{
		{Path: "notificationSettings", Value: settings},
	})
	return notFound(err, userId)
}

func (s *FirestoreUserStore) SaveExtendedProfile(ctx context.Context, userId string, profile types.ExtendedProfile) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
	add := func(path string, v *string) {
		if v != nil {
			updates = append(updates, firestore.Update{Path: path, Value: *v})
		}
	}
	add("displayName", profile.DisplayName)
	add("phone", profile.Phone)
	add("bio", profile.Bio)
	add("photoURL", profile.PhotoURL)
	_, err := s.doc(userId).Update(ctx, updates)
	return notFound(err, userId)
}
