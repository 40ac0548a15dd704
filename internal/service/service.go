package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libtrack/libtrack/internal/errs"
	"github.com/libtrack/libtrack/internal/model"
	"github.com/libtrack/libtrack/internal/repository"
)

const (
	loanPeriodDays = 14
	maxOpenLoans   = 5
)

var patronIDRe = regexp.MustCompile(`^\d{6}$`)

type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	producer sarama.SyncProducer

	// strictStatus makes GetPatronStatus fail with NotFound for a
	// patron with no loan history instead of an empty report.
	strictStatus bool
	now          func() time.Time

	locks bookLocks
}

type Option func(*Service)

func WithStrictStatus(strict bool) Option {
	return func(s *Service) { s.strictStatus = strict }
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithProducer enables loan-event publishing. Without it borrow and
// return still work, events are just not emitted.
func WithProducer(producer sarama.SyncProducer) Option {
	return func(s *Service) { s.producer = producer }
}

func NewService(repo repository.Repository, log *zap.Logger, ops ...Option) *Service {
	s := &Service{
		log:          log,
		repo:         repo,
		strictStatus: true,
		now:          time.Now,
	}
	for _, op := range ops {
		op(s)
	}
	return s
}

func (s *Service) AddBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	isbn := model.NormalizeISBN(req.ISBN)
	if len(isbn) != 10 && len(isbn) != 13 {
		return model.Book{}, errors.Wrap(errs.ErrInvalidArgument, "isbn must have 10 or 13 characters")
	}

	return s.repo.AddBook(ctx, model.Book{
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	})
}

func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

func (s *Service) Search(ctx context.Context, term string, searchType model.SearchType) ([]model.Book, error) {
	if strings.TrimSpace(term) == "" {
		return nil, errors.Wrap(errs.ErrInvalidArgument, "search term is empty")
	}
	switch searchType {
	case model.SearchByTitle, model.SearchByAuthor, model.SearchByISBN:
	default:
		return nil, errors.Wrapf(errs.ErrInvalidArgument, "search type %q", searchType)
	}
	return s.repo.SearchBooks(ctx, term, searchType)
}

func validPatronID(patronID string) error {
	if !patronIDRe.MatchString(patronID) {
		return errors.Wrap(errs.ErrInvalidArgument, "patron id must be exactly 6 digits")
	}
	return nil
}

// bookLocks serializes the read-check-mutate borrow/return sequence
// per book, so concurrent borrows of the last copy cannot both pass
// the availability check.
type bookLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func (b *bookLocks) lock(bookID int) func() {
	b.mu.Lock()
	if b.locks == nil {
		b.locks = make(map[int]*sync.Mutex)
	}
	l, ok := b.locks[bookID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[bookID] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}
