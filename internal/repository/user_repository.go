package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"authgate/internal/model"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique index (email or provider identity) rejects a write.
	ErrDuplicate = errors.New("user already exists")
)

// UserRepository defines credential store operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindProfileByID(ctx context.Context, id string) (*model.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	ListProfiles(ctx context.Context) ([]model.UserProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a user. Unique index violations surface as ErrDuplicate.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID finds a user with all credential columns.
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindProfileByID loads only the public columns; the password hash never leaves the store.
func (r *userRepository) FindProfileByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select(model.ProfileColumns).
		Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return user.Profile(), nil
}

// FindByEmail finds a user by exact email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByProvider finds the user linked to an external identity.
func (r *userRepository) FindByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdatePasswordHash replaces the stored digest of a local account.
func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND provider = ?", id, model.ProviderLocal).
		Update("password_hash", hash)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProfiles lists every user projection, oldest first.
func (r *userRepository) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Select(model.ProfileColumns).
		Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	profiles := make([]model.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, *users[i].Profile())
	}
	return profiles, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
