package model

import (
	"strings"
	"time"

	"fitness-coaching-platform/internal/domain"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleClient:
		return true
	}
	return false
}

// User is a platform account. PasswordHash is a bcrypt hash and must never
// leave the persistence/usecase boundary.
type User struct {
	ID           string // UUID
	Email        string // unique, lowercased
	PasswordHash string
	Name         string
	Phone        string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// NewUser validates and constructs a user account.
func NewUser(id, email, passwordHash, name string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if id == "" || email == "" || passwordHash == "" || !role.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}

// TrainerLink ties a trainer to one of their clients. Manual package
// assignment is only allowed across an existing link.
type TrainerLink struct {
	TrainerID string
	ClientID  string
	CreatedAt time.Time
}
