package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"authgate/internal/model"
	"authgate/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// ProfileCache is the subset of the cache client the directory uses.
type ProfileCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// UserService exposes read-only user projections.
type UserService interface {
	GetUser(ctx context.Context, id string) (*model.UserProfile, error)
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
}

type userService struct {
	repo  repository.UserRepository
	cache ProfileCache
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache ProfileCache) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.UserProfile, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.UserProfile
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	profile, err := s.repo.FindProfileByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if payload, err := json.Marshal(profile); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return profile, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	profiles, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return profiles, nil
}
