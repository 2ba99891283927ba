package books

import (
	"context"
	"database/sql"

	"github.com/booklend/booklend/pkg/errcodes"
	"github.com/booklend/booklend/pkg/models"
	"github.com/booklend/booklend/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// sortColumns whitelists the sortable catalog fields.
var sortColumns = map[string]string{
	"title":        "b.title",
	"author":       "b.author",
	"isbn":         "b.isbn",
	"published_at": "b.published_at",
}

// SearchOptions contains options for searching the catalog.
type SearchOptions struct {
	Search *string
	Page   int
	Size   int
	Sort   string
}

// Service handles catalog reads.
type Service struct {
	db *bun.DB
}

// NewService creates a new books service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Search returns a page of books matching the free-text search, each
// annotated with its loan status. An absent search string matches all books.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (pagination.Page[*BookWithLoan], error) {
	var empty pagination.Page[*BookWithLoan]

	order, ok := sortColumns[opts.Sort]
	if !ok {
		order = sortColumns["title"]
	}

	bookList := []*models.Book{}
	q := s.db.NewSelect().
		Model(&bookList).
		Order(order + " ASC").
		Limit(opts.Size).
		Offset(opts.Page * opts.Size)

	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + *opts.Search + "%"
		q = q.Where("b.title LIKE ? OR b.author LIKE ? OR b.isbn LIKE ?", pattern, pattern, pattern)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return empty, errors.WithStack(err)
	}

	openLoans, err := s.openLoansByBookID(ctx, bookList)
	if err != nil {
		return empty, err
	}

	items := make([]*BookWithLoan, 0, len(bookList))
	for _, book := range bookList {
		items = append(items, newBookWithLoan(book, openLoans[book.ID]))
	}

	return pagination.NewPage(items, opts.Page, opts.Size, int64(total)), nil
}

// RetrieveByISBN returns a single book with its loan status.
func (s *Service) RetrieveByISBN(ctx context.Context, isbn string) (*BookWithLoan, error) {
	book := &models.Book{}
	err := s.db.NewSelect().
		Model(book).
		Where("b.isbn = ?", isbn).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	openLoans, err := s.openLoansByBookID(ctx, []*models.Book{book})
	if err != nil {
		return nil, err
	}

	return newBookWithLoan(book, openLoans[book.ID]), nil
}

// openLoansByBookID fetches the open loan (if any) for each of the given
// books in one query.
func (s *Service) openLoansByBookID(ctx context.Context, bookList []*models.Book) (map[int]*models.Loan, error) {
	if len(bookList) == 0 {
		return map[int]*models.Loan{}, nil
	}

	ids := make([]int, 0, len(bookList))
	for _, book := range bookList {
		ids = append(ids, book.ID)
	}

	loans := []*models.Loan{}
	err := s.db.NewSelect().
		Model(&loans).
		Where("l.book_id IN (?)", bun.In(ids)).
		Where("l.returned_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	byBookID := make(map[int]*models.Loan, len(loans))
	for _, loan := range loans {
		byBookID[loan.BookID] = loan
	}
	return byBookID, nil
}
