// Package identity holds user accounts, profiles and the role model.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// UserStatus represents the lifecycle state of an account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is an account: a regular retention-agent user, an operator sub-user,
// or back-office staff. Operators carry the parent account whose companies
// they work on.
type User struct {
	shared.BaseAggregateRoot
	Email        string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(100);not null"`
	FirstName    string     `gorm:"type:varchar(100);not null"`
	LastName     string     `gorm:"type:varchar(100);not null"`
	Phone        string     `gorm:"type:varchar(30)"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'user';index"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index"` // Set for operators
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser registers a regular account with a bcrypt-hashed password
func NewUser(email, password, firstName, lastName, phone string) (*User, error) {
	return newUser(email, password, firstName, lastName, phone, RoleUser, nil)
}

// NewOperator registers an operator sub-user under a parent account
func NewOperator(parentID uuid.UUID, email, password, firstName, lastName, phone string) (*User, error) {
	if parentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Operator requires a parent account")
	}
	return newUser(email, password, firstName, lastName, phone, RoleOperator, &parentID)
}

func newUser(email, password, firstName, lastName, phone string, role Role, parentID *uuid.UUID) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "First and last name are required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role is not valid")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      string(hash),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Phone:             strings.TrimSpace(phone),
		Role:              role,
		Status:            UserStatusActive,
		ParentID:          parentID,
	}, nil
}

// CheckPassword verifies a plaintext password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword re-hashes and stores a new password
func (u *User) ChangePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// UpdateProfile changes the profile fields
func (u *User) UpdateProfile(firstName, lastName, phone string) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return shared.NewDomainError("INVALID_NAME", "First and last name are required")
	}
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.Phone = strings.TrimSpace(phone)
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// Suspend blocks the account
func (u *User) Suspend() {
	u.Status = UserStatusSuspended
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// Activate re-enables the account
func (u *User) Activate() {
	u.Status = UserStatusActive
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// IsActive reports whether the account may log in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// AccountID returns the account whose data this user works on: the parent
// account for operators, the user itself otherwise.
func (u *User) AccountID() uuid.UUID {
	if u.Role == RoleOperator && u.ParentID != nil {
		return *u.ParentID
	}
	return u.ID
}

// FullName returns the display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
