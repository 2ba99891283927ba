package loans

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/booklend/booklend/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles the loan ledger: borrow, return, and per-user history.
type Service struct {
	db *bun.DB
}

// NewService creates a new loans service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Borrow lends the book with the given ISBN to the given user. The open-loan
// check and the insert run in one transaction, and the partial unique index
// on open loans backstops concurrent borrowers: at most one of them wins,
// the rest get Conflict.
func (s *Service) Borrow(ctx context.Context, isbn, username string) (*models.Loan, error) {
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	book := &models.Book{}
	err = s.db.NewSelect().
		Model(book).
		Where("b.isbn = ?", isbn).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	loan := &models.Loan{
		CreatedAt:  now,
		UpdatedAt:  now,
		BookID:     book.ID,
		UserID:     user.ID,
		BorrowedAt: now,
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		open, err := tx.NewSelect().
			Model((*models.Loan)(nil)).
			Where("book_id = ?", book.ID).
			Where("returned_at IS NULL").
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if open {
			return errcodes.Conflict("Book is already borrowed")
		}

		_, err = tx.NewInsert().Model(loan).Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return errcodes.Conflict("Book is already borrowed")
			}
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	loan.Book = book
	return loan, nil
}

// Return closes a loan by stamping returned_at. A loan that doesn't exist,
// isn't open, or belongs to another user comes back as NotFound — ownership
// mismatches deliberately don't reveal that the loan exists.
func (s *Service) Return(ctx context.Context, loanID int, username string) error {
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		loan := &models.Loan{}
		err := tx.NewSelect().
			Model(loan).
			Where("l.id = ?", loanID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Loan")
			}
			return errors.WithStack(err)
		}

		if loan.UserID != user.ID || !loan.Open() {
			return errcodes.NotFound("Loan")
		}

		now := time.Now()
		loan.ReturnedAt = &now
		loan.UpdatedAt = now

		_, err = tx.NewUpdate().
			Model(loan).
			Column("returned_at", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// ListForUser returns all loans of a user, open and closed, newest first,
// with book details embedded. An unknown username yields an empty list.
func (s *Service) ListForUser(ctx context.Context, username string) ([]*models.Loan, error) {
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		var e *errcodes.Error
		if errors.As(err, &e) && e.Code == "not_found" {
			return []*models.Loan{}, nil
		}
		return nil, err
	}

	loans := []*models.Loan{}
	err = s.db.NewSelect().
		Model(&loans).
		Relation("Book").
		Where("l.user_id = ?", user.ID).
		Order("l.borrowed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return loans, nil
}

func (s *Service) userByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
