package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/libtrack/libtrack/internal/errs"
	"github.com/libtrack/libtrack/internal/model"
)

// memoryRepository keeps the catalog and the loan ledger in process.
// It is used when no database is configured and by the service tests.
// Books keep catalog insertion order; loans are append-only.
type memoryRepository struct {
	mu     sync.RWMutex
	books  []*model.Book
	byISBN map[string]*model.Book
	loans  []*model.Loan

	nextBookID int
	nextLoanID int
}

var (
	_ Repository = (*repository)(nil)
	_ Repository = (*memoryRepository)(nil)
)

func NewMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byISBN:     make(map[string]*model.Book),
		nextBookID: 1,
		nextLoanID: 1,
	}
}

func (r *memoryRepository) AddBook(_ context.Context, book model.Book) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byISBN[book.ISBN]; ok {
		return model.Book{}, errors.Wrap(errs.ErrConflict, "isbn already in catalog")
	}

	b := book
	b.ID = r.nextBookID
	r.nextBookID++
	r.books = append(r.books, &b)
	r.byISBN[b.ISBN] = &b

	return b, nil
}

func (r *memoryRepository) GetBook(_ context.Context, bookID int) (model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := r.findBook(bookID)
	if b == nil {
		return model.Book{}, errors.Wrap(errs.ErrNotFound, "book")
	}
	return *b, nil
}

func (r *memoryRepository) ListBooks(_ context.Context) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		books = append(books, *b)
	}
	return books, nil
}

func (r *memoryRepository) SearchBooks(_ context.Context, term string, searchType model.SearchType) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	match := func(b *model.Book) bool { return false }
	switch searchType {
	case model.SearchByISBN:
		canonical := model.NormalizeISBN(term)
		match = func(b *model.Book) bool { return b.ISBN == canonical }
	case model.SearchByTitle:
		needle := strings.ToLower(term)
		match = func(b *model.Book) bool { return strings.Contains(strings.ToLower(b.Title), needle) }
	case model.SearchByAuthor:
		needle := strings.ToLower(term)
		match = func(b *model.Book) bool { return strings.Contains(strings.ToLower(b.Author), needle) }
	default:
		return nil, errors.Wrapf(errs.ErrInvalidArgument, "search type %q", searchType)
	}

	books := make([]model.Book, 0)
	for _, b := range r.books {
		if match(b) {
			books = append(books, *b)
		}
	}
	return books, nil
}

func (r *memoryRepository) AvailableCount(_ context.Context, bookID int, isReturn bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.findBook(bookID)
	if b == nil {
		return errors.Wrap(errs.ErrNotFound, "book")
	}
	if isReturn {
		if b.AvailableCopies < b.TotalCopies {
			b.AvailableCopies++
		}
		return nil
	}
	if b.AvailableCopies <= 0 {
		return errors.Wrap(errs.ErrConflict, "no copies available")
	}
	b.AvailableCopies--
	return nil
}

func (r *memoryRepository) CreateLoan(_ context.Context, loan model.Loan) (model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.loans {
		if l.PatronID == loan.PatronID && l.BookID == loan.BookID && l.Open() {
			return model.Loan{}, errors.Wrap(errs.ErrConflict, "open loan already exists")
		}
	}

	l := loan
	l.ID = r.nextLoanID
	r.nextLoanID++
	r.loans = append(r.loans, &l)

	return l, nil
}

func (r *memoryRepository) GetOpenLoan(_ context.Context, patronID string, bookID int) (model.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.loans {
		if l.PatronID == patronID && l.BookID == bookID && l.Open() {
			return *l, nil
		}
	}
	return model.Loan{}, errors.Wrap(errs.ErrNotFound, "open loan")
}

func (r *memoryRepository) CloseLoan(_ context.Context, loanID int, returnedAt time.Time, fee float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.loans {
		if l.ID == loanID {
			if !l.Open() {
				return errors.Wrap(errs.ErrConflict, "loan already closed")
			}
			at := returnedAt
			f := fee
			l.ReturnDate = &at
			l.Fee = &f
			return nil
		}
	}
	return errors.Wrap(errs.ErrNotFound, "loan")
}

func (r *memoryRepository) OpenLoanCountByPatron(_ context.Context, patronID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, l := range r.loans {
		if l.PatronID == patronID && l.Open() {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) OpenLoanCountByBook(_ context.Context, bookID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, l := range r.loans {
		if l.BookID == bookID && l.Open() {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) PatronLoans(_ context.Context, patronID string) ([]model.PatronLoan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loans := make([]model.PatronLoan, 0)
	for _, l := range r.loans {
		if l.PatronID != patronID {
			continue
		}
		title := ""
		if b := r.findBook(l.BookID); b != nil {
			title = b.Title
		}
		loans = append(loans, model.PatronLoan{Loan: *l, Title: title})
	}
	sort.SliceStable(loans, func(i, j int) bool {
		return loans[i].BorrowDate.Before(loans[j].BorrowDate)
	})
	return loans, nil
}

func (r *memoryRepository) findBook(bookID int) *model.Book {
	for _, b := range r.books {
		if b.ID == bookID {
			return b
		}
	}
	return nil
}
