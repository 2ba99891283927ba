package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan records one lending of a book to a user. ReturnedAt is null while the
// book is out and is stamped exactly once on return. The partial unique index
// ux_loans_open_book guarantees at most one open loan per book.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID         int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt  time.Time  `json:"-"`
	UpdatedAt  time.Time  `json:"-"`
	BookID     int        `bun:",notnull" json:"-"`
	UserID     int        `bun:",notnull" json:"user_id"`
	BorrowedAt time.Time  `bun:",notnull" json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at"`

	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}

// Open reports whether the book of this loan is still out.
func (l *Loan) Open() bool {
	return l.ReturnedAt == nil
}
