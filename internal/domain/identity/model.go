package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account. Role drives RBAC; OrganizationID scopes every
// patient-targeted action for non-admins.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FullName       string     `db:"full_name" json:"full_name"`
	Email          string     `db:"email" json:"email"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	Role           string     `db:"role" json:"role"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	LoginAttempts  int        `db:"login_attempts" json:"-"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
