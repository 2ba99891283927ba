package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/booklend/booklend/pkg/models"
	"github.com/booklend/booklend/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

var sortColumns = map[string]string{
	"username":  "u.username",
	"firstname": "u.firstname",
	"lastname":  "u.lastname",
	"email":     "u.email",
}

// SearchOptions contains options for searching the user directory.
type SearchOptions struct {
	Search *string
	Page   int
	Size   int
	Sort   string
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Username  string
	Firstname string
	Lastname  string
	Email     string
}

// Service handles user directory operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Search returns a page of users matching the free-text search over
// username, first name, last name, and email.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (pagination.Page[*models.User], error) {
	var empty pagination.Page[*models.User]

	order, ok := sortColumns[opts.Sort]
	if !ok {
		order = sortColumns["username"]
	}

	userList := []*models.User{}
	q := s.db.NewSelect().
		Model(&userList).
		Order(order + " ASC").
		Limit(opts.Size).
		Offset(opts.Page * opts.Size)

	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + *opts.Search + "%"
		q = q.Where(
			"u.username LIKE ? OR u.firstname LIKE ? OR u.lastname LIKE ? OR u.email LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return empty, errors.WithStack(err)
	}

	return pagination.NewPage(userList, opts.Page, opts.Size, int64(total)), nil
}

// RetrieveByUsername gets a user by username.
func (s *Service) RetrieveByUsername(ctx context.Context, username string) (*models.User, error) {
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

// Create creates a new user. Username and email are checked independently;
// the Conflict error names every field that collided.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		CreatedAt: now,
		UpdatedAt: now,
		Username:  opts.Username,
		Firstname: opts.Firstname,
		Lastname:  opts.Lastname,
		Email:     opts.Email,
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		usernameExists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("username = ?", opts.Username).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		emailExists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("email = ?", opts.Email).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if usernameExists || emailExists {
			hints := []string{}
			if usernameExists {
				hints = append(hints, "username")
			}
			if emailExists {
				hints = append(hints, "email")
			}
			return errcodes.Conflict("User already exists", hints...)
		}

		_, err = tx.NewInsert().Model(user).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Delete removes a user by username. A user with open loans can't be
// deleted; their closed loans go with them.
func (s *Service) Delete(ctx context.Context, username string) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		user := &models.User{}
		err := tx.NewSelect().
			Model(user).
			Where("u.username = ?", username).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("User")
			}
			return errors.WithStack(err)
		}

		openLoans, err := tx.NewSelect().
			Model((*models.Loan)(nil)).
			Where("user_id = ?", user.ID).
			Where("returned_at IS NULL").
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if openLoans {
			return errcodes.Conflict("User still has open loans", "loans")
		}

		_, err = tx.NewDelete().
			Model((*models.Loan)(nil)).
			Where("user_id = ?", user.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model(user).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
}
