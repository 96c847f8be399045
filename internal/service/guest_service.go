package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// GuestService manages anonymous participant identity: the opaque per-browser
// guest key and the captured profile kept in Redis for reuse, so a returning
// guest is not asked for name and email again.
type GuestService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewGuestService creates a new GuestService.
func NewGuestService(cfg *config.Config, rdb *redis.Client) *GuestService {
	return &GuestService{cfg: cfg, rdb: rdb}
}

// NewGuestKey issues a fresh opaque guest key.
func (s *GuestService) NewGuestKey() string {
	return uuid.New().String()
}

// SaveProfile persists a captured profile under the guest key.
func (s *GuestService) SaveProfile(ctx context.Context, guestKey string, p model.AnonymousProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	key := config.CacheKey.AnonProfileKey(guestKey)
	if err := s.rdb.Set(ctx, key, data, s.cfg.AnonProfileTTL).Err(); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// GetProfile returns the stored profile for a guest key, or nil when none
// was captured yet (or it expired).
func (s *GuestService) GetProfile(ctx context.Context, guestKey string) (*model.AnonymousProfile, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AnonProfileKey(guestKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var p model.AnonymousProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
