package domain

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // argon2id encoded
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserIdentity is the value produced by a successful credential resolution.
// It carries nothing but the canonical authentication identifier so that
// downstream grant issuance never sees credentials or row state.
type UserIdentity struct {
	id string
}

func NewUserIdentity(id string) UserIdentity { return UserIdentity{id: id} }

// ID returns the canonical authentication identifier.
func (u UserIdentity) ID() string { return u.id }

func (u UserIdentity) IsZero() bool { return u.id == "" }
