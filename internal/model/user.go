package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// ProviderLocal marks accounts that sign in with email and password.
	ProviderLocal = "local"
	// ProviderGoogle marks accounts linked to a Google identity.
	ProviderGoogle = "google"
)

var (
	// ErrUnhashedPassword is returned when a password hash is not a bcrypt digest.
	ErrUnhashedPassword = errors.New("password hash is not a bcrypt digest")
	// ErrProviderAccountHasPassword is returned when an external account carries a password hash.
	ErrProviderAccountHasPassword = errors.New("provider account cannot have a password")
	// ErrProviderIDRequired is returned when an external account lacks its provider id.
	ErrProviderIDRequired = errors.New("provider id is required for provider accounts")
)

// User is a credential record: either a local account with a password hash or
// an account linked to an external identity provider.
type User struct {
	ID           string    `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash *string   `json:"-" gorm:"size:255"` // Never expose in JSON
	Provider     string    `json:"provider" gorm:"size:32;not null;default:local;uniqueIndex:idx_users_provider_identity,priority:1"`
	ProviderID   *string   `json:"providerId,omitempty" gorm:"size:255;uniqueIndex:idx_users_provider_identity,priority:2"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserProfile is the public projection of a User. It never carries the password hash.
type UserProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Provider   string    `json:"provider"`
	ProviderID *string   `json:"providerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProfileColumns lists the columns needed to build a UserProfile.
var ProfileColumns = []string{"id", "name", "email", "provider", "provider_id", "created_at"}

// BeforeCreate sets the UUID before inserting the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Provider == "" {
		u.Provider = ProviderLocal
	}
	return nil
}

// BeforeSave rejects records that break the credential invariants. It only
// validates; hashing happens before the record reaches the store.
func (u *User) BeforeSave(tx *gorm.DB) error {
	return u.Validate()
}

// Validate checks the password/provider invariants of the record.
func (u *User) Validate() error {
	if u.Provider != "" && u.Provider != ProviderLocal {
		if u.PasswordHash != nil {
			return ErrProviderAccountHasPassword
		}
		if u.ProviderID == nil || *u.ProviderID == "" {
			return ErrProviderIDRequired
		}
	}
	if u.PasswordHash != nil {
		if _, err := bcrypt.Cost([]byte(*u.PasswordHash)); err != nil {
			return ErrUnhashedPassword
		}
	}
	return nil
}

// IsLocal reports whether the account signs in with a password.
func (u *User) IsLocal() bool {
	return u.Provider == "" || u.Provider == ProviderLocal
}

// Profile projects the record without its password hash.
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Provider:   u.Provider,
		ProviderID: u.ProviderID,
		CreatedAt:  u.CreatedAt,
	}
}
