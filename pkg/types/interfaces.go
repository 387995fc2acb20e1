package types

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type PhoneQuery interface {
	GetPhones(ctx context.Context, q QuerySpec) ([]PhoneRecord, error)
}

type PreferenceStore interface {
	SaveUserPreferences(ctx context.Context, userId string, selection FacetSelection) error
}

type NotificationSettings struct {
	PushNotifications  bool   `json:"pushNotifications" firestore:"pushNotifications"`
	EmailNotifications bool   `json:"emailNotifications" firestore:"emailNotifications"`
	NewPhoneAlerts     bool   `json:"newPhoneAlerts" firestore:"newPhoneAlerts"`
	PriceDropAlerts    bool   `json:"priceDropAlerts" firestore:"priceDropAlerts"`
	DeviceToken        string `json:"deviceToken,omitempty" firestore:"deviceToken,omitempty"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		PushNotifications:  true,
		EmailNotifications: true,
		NewPhoneAlerts:     true,
		PriceDropAlerts:    true,
	}
}

type UserProfile struct {
	UID                  string                `json:"uid" firestore:"uid"`
	Email                string                `json:"email" firestore:"email"`
	DisplayName          string                `json:"displayName" firestore:"displayName"`
	PhotoURL             string                `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	Phone                string                `json:"phone,omitempty" firestore:"phone,omitempty"`
	Bio                  string                `json:"bio,omitempty" firestore:"bio,omitempty"`
	Preferences          FacetSelection        `json:"preferences" firestore:"preferences"`
	NotificationSettings *NotificationSettings `json:"notificationSettings,omitempty" firestore:"notificationSettings,omitempty"`
	CreatedAt            time.Time             `json:"createdAt" firestore:"createdAt"`
	LastLogin            time.Time             `json:"lastLogin" firestore:"lastLogin"`
	UpdatedAt            time.Time             `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// ExtendedProfile holds the user editable profile fields, nil means unchanged.
type ExtendedProfile struct {
	DisplayName *string `json:"displayName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

type ProfileStore interface {
	PreferenceStore
	GetUserProfile(ctx context.Context, userId string) (*UserProfile, error)
	EnsureUserProfile(ctx context.Context, id Identity) error
	UpdateNotificationSettings(ctx context.Context, userId string, settings NotificationSettings) error
	SaveExtendedProfile(ctx context.Context, userId string, profile ExtendedProfile) error
}

type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

type Authenticator interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type Tracking interface {
	TrackSession(sessionId string, r *http.Request)
	TrackSearch(sessionId string, selection FacetSelection, resultLen int, cached bool, r *http.Request)
	Close() error
}
