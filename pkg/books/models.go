package books

import (
	"time"

	"github.com/booklend/booklend/pkg/models"
)

// LoanStatus annotates a catalog entry with its current availability. When
// the book is out, the open loan's borrower and start time are included.
type LoanStatus struct {
	Available  bool       `json:"available"`
	BorrowerID *int       `json:"borrower_id,omitempty"`
	BorrowedAt *time.Time `json:"borrowed_at,omitempty"`
}

// BookWithLoan is the catalog read model: the book plus its loan status.
type BookWithLoan struct {
	models.Book
	LoanStatus LoanStatus `json:"loan_status"`
}

func newBookWithLoan(book *models.Book, open *models.Loan) *BookWithLoan {
	bwl := &BookWithLoan{Book: *book}
	if open != nil {
		bwl.LoanStatus = LoanStatus{
			Available:  false,
			BorrowerID: &open.UserID,
			BorrowedAt: &open.BorrowedAt,
		}
	} else {
		bwl.LoanStatus = LoanStatus{Available: true}
	}
	return bwl
}
