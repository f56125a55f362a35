package service

import (
	"context"
	"errors"
	"fmt"

	"authgate/internal/auth"
	"authgate/internal/model"
	"authgate/internal/repository"
)

// IdentityResolver maps credentials and external identities to user records.
type IdentityResolver interface {
	ResolveLocal(ctx context.Context, email, password string) (*model.User, error)
	ResolveOrCreateExternal(ctx context.Context, provider, providerID, name, email string) (*model.User, error)
	RegisterLocal(ctx context.Context, name, email, password string) (*model.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type identityResolver struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
}

// NewIdentityResolver creates a resolver over the credential store.
func NewIdentityResolver(users repository.UserRepository, hasher auth.PasswordHasher) IdentityResolver {
	return &identityResolver{users: users, hasher: hasher}
}

// setPassword is the only place a plaintext password becomes a stored digest.
// Every path that sets or changes a password goes through it.
func (r *identityResolver) setPassword(user *model.User, plaintext string) error {
	digest, err := r.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	user.PasswordHash = &digest
	return nil
}

// ResolveLocal finds the account for email and checks its password.
func (r *identityResolver) ResolveLocal(ctx context.Context, email, password string) (*model.User, error) {
	user, err := r.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if user.PasswordHash == nil || !r.hasher.Verify(password, *user.PasswordHash) {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// ResolveOrCreateExternal returns the account linked to (provider, providerID),
// creating it on first sight. An existing account with the same email is not
// linked: the unique email index makes that case fail with ErrEmailTaken.
func (r *identityResolver) ResolveOrCreateExternal(ctx context.Context, provider, providerID, name, email string) (*model.User, error) {
	user, err := r.users.FindByProvider(ctx, provider, providerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user by provider: %w", err)
	}

	pid := providerID
	user = &model.User{
		Name:       name,
		Email:      email,
		Provider:   provider,
		ProviderID: &pid,
	}
	err = r.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("create provider user: %w", err)
	}

	// Lost a race on the same identity, or the email belongs to someone else.
	winner, err := r.users.FindByProvider(ctx, provider, providerID)
	if err == nil {
		return winner, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEmailTaken
	}
	return nil, fmt.Errorf("find user by provider: %w", err)
}

// RegisterLocal creates a local account. Concurrent registrations of the same
// email are settled by the store's unique index.
func (r *identityResolver) RegisterLocal(ctx context.Context, name, email, password string) (*model.User, error) {
	existing, err := r.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Provider: model.ProviderLocal,
	}
	if err := r.setPassword(user, password); err != nil {
		return nil, err
	}

	if err := r.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// ChangePassword re-hashes and stores a new password after checking the current one.
func (r *identityResolver) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsLocal() {
		return ErrPasswordNotSupported
	}
	if user.PasswordHash == nil || !r.hasher.Verify(current, *user.PasswordHash) {
		return ErrBadCredentials
	}

	if err := r.setPassword(user, next); err != nil {
		return err
	}
	if err := r.users.UpdatePasswordHash(ctx, user.ID, *user.PasswordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// FindByID loads a user by id.
func (r *identityResolver) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
