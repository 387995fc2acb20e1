package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matst80/killu-finder/pkg/types"
)

// MemoryUserStore keeps user profiles in process, for local runs.
type MemoryUserStore struct {
	mu       sync.RWMutex
	profiles map[string]*types.UserProfile
	now      func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		profiles: make(map[string]*types.UserProfile),
		now:      time.Now,
	}
}

func (s *MemoryUserStore) get(userId string) (*types.UserProfile, error) {
	p, ok := s.profiles[userId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUserNotFound, userId)
	}
	return p, nil
}

func (s *MemoryUserStore) GetUserProfile(_ context.Context, userId string) (*types.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.get(userId)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryUserStore) EnsureUserProfile(_ context.Context, id types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if p, ok := s.profiles[id.UID]; ok {
		p.LastLogin = now
		return nil
	}
	s.profiles[id.UID] = &types.UserProfile{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		CreatedAt:   now,
		LastLogin:   now,
	}
	return nil
}

func (s *MemoryUserStore) SaveUserPreferences(_ context.Context, userId string, selection types.FacetSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(userId)
	if err != nil {
		return err
	}
	p.Preferences = selection
	return nil
}

func (s *MemoryUserStore) UpdateNotificationSettings(_ context.Context, userId string, settings types.NotificationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(userId)
	if err != nil {
		return err
	}
	p.NotificationSettings = &settings
	return nil
}

func (s *MemoryUserStore) SaveExtendedProfile(_ context.Context, userId string, profile types.ExtendedProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(userId)
	if err != nil {
		return err
	}
	if profile.DisplayName != nil {
		p.DisplayName = *profile.DisplayName
	}
	if profile.Phone != nil {
		p.Phone = *profile.Phone
	}
	if profile.Bio != nil {
		p.Bio = *profile.Bio
	}
	if profile.PhotoURL != nil {
		p.PhotoURL = *profile.PhotoURL
	}
	p.UpdatedAt = s.now()
	return nil
}
