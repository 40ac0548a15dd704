package repository

import (
	"context"
	"time"

	"github.com/libtrack/libtrack/internal/model"
)

// Repository is the catalog store and loan ledger behind the service.
// Only the borrow/return flow mutates available copies and loans; the
// service serializes those mutations per book.
type Repository interface {
	AddBook(ctx context.Context, book model.Book) (model.Book, error)
	GetBook(ctx context.Context, bookID int) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	SearchBooks(ctx context.Context, term string, searchType model.SearchType) ([]model.Book, error)
	AvailableCount(ctx context.Context, bookID int, isReturn bool) error

	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	GetOpenLoan(ctx context.Context, patronID string, bookID int) (model.Loan, error)
	CloseLoan(ctx context.Context, loanID int, returnedAt time.Time, fee float64) error
	OpenLoanCountByPatron(ctx context.Context, patronID string) (int, error)
	OpenLoanCountByBook(ctx context.Context, bookID int) (int, error)
	PatronLoans(ctx context.Context, patronID string) ([]model.PatronLoan, error)
}
