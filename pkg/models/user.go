package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a library member. Credentials live in the identity provider, not
// here; this record only carries the profile the lending ledger needs.
// Username and email are each globally unique.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int       `bun:",pk,autoincrement" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	Username  string    `bun:",nullzero" json:"username"`
	Firstname string    `bun:",nullzero" json:"firstname"`
	Lastname  string    `bun:",nullzero" json:"lastname"`
	Email     string    `bun:",nullzero" json:"email"`
}
