package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is a catalogued title. Books are created by the seed/import path and
// are immutable afterwards; there is no update or delete surface.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int       `bun:",pk,autoincrement" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	ISBN        string    `bun:"isbn,nullzero" json:"isbn"`
	Title       string    `bun:",nullzero" json:"title"`
	Author      string    `bun:",nullzero" json:"author"`
	PublishedAt int       `bun:",nullzero" json:"published_at"`
	Publisher   string    `bun:",nullzero" json:"publisher"`
	Language    string    `bun:",nullzero" json:"language"`
	Pages       int       `bun:",nullzero" json:"pages"`
	Description string    `bun:",nullzero" json:"description"`
}
