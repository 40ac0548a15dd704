package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libtrack/libtrack/internal/errs"
	"github.com/libtrack/libtrack/internal/model"
)

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName = `books`
	loansTableName = `loans`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *repository) AddBook(ctx context.Context, book model.Book) (model.Book, error) {
	q, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "isbn", "total_copies", "available_copies").
		Values(book.Title, book.Author, book.ISBN, book.TotalCopies, book.AvailableCopies).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var res model.Book
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errors.Wrap(errs.ErrConflict, "isbn already in catalog")
		}
		r.log.Error("AddBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, err
	}
	return res, nil
}

func (r *repository) GetBook(ctx context.Context, bookID int) (model.Book, error) {
	q, args, err := qb.Select("id", "title", "author", "isbn", "total_copies", "available_copies").
		From(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errors.Wrap(errs.ErrNotFound, "book")
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context) ([]model.Book, error) {
	q, args, err := qb.Select("id", "title", "author", "isbn", "total_copies", "available_copies").
		From(booksTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, q, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) SearchBooks(ctx context.Context, term string, searchType model.SearchType) ([]model.Book, error) {
	q := qb.Select("id", "title", "author", "isbn", "total_copies", "available_copies").
		From(booksTableName).
		OrderBy("id")

	switch searchType {
	case model.SearchByISBN:
		q = q.Where(sq.Eq{"isbn": model.NormalizeISBN(term)})
	case model.SearchByTitle:
		q = q.Where(sq.ILike{"title": "%" + term + "%"})
	case model.SearchByAuthor:
		q = q.Where(sq.ILike{"author": "%" + term + "%"})
	default:
		return nil, errors.Wrapf(errs.ErrInvalidArgument, "search type %q", searchType)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("SearchBooks", zap.String("query", query), zap.Any("args", args))

	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

// AvailableCount decrements a book's available copies on borrow and
// increments on return. Decrement never drives the count below zero;
// increment is capped at total copies.
func (r *repository) AvailableCount(ctx context.Context, bookID int, isReturn bool) error {
	if isReturn {
		q := `
update books
	set available_copies = least(total_copies, available_copies + 1)
where id = $1`
		_, err := r.db.ExecContext(ctx, q, bookID)
		return err
	}

	q := `
update books
	set available_copies = available_copies - 1
where id = $1 and available_copies > 0`
	res, err := r.db.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(errs.ErrConflict, "no copies available")
	}
	return nil
}

func (r *repository) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	q, args, err := qb.Insert(loansTableName).
		Columns("loan_uid", "patron_id", "book_id", "borrow_date", "due_date").
		Values(loan.LoanUid, loan.PatronID, loan.BookID, loan.BorrowDate, loan.DueDate).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var res model.Loan
	if err := r.db.GetContext(ctx, &res, q, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Loan{}, errors.Wrap(errs.ErrConflict, "open loan already exists")
		}
		r.log.Error("CreateLoan", zap.String("q", q), zap.Any("args", args))
		return model.Loan{}, err
	}
	return res, nil
}

func (r *repository) GetOpenLoan(ctx context.Context, patronID string, bookID int) (model.Loan, error) {
	q, args, err := qb.Select("id", "loan_uid", "patron_id", "book_id", "borrow_date", "due_date", "return_date", "fee").
		From(loansTableName).
		Where(sq.Eq{"patron_id": patronID}).
		Where(sq.Eq{"book_id": bookID}).
		Where(sq.Eq{"return_date": nil}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errors.Wrap(errs.ErrNotFound, "open loan")
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) CloseLoan(ctx context.Context, loanID int, returnedAt time.Time, fee float64) error {
	q := `
update loans
	set return_date = $2, fee = $3
where id = $1 and return_date is null`
	res, err := r.db.ExecContext(ctx, q, loanID, returnedAt, fee)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(errs.ErrConflict, "loan already closed")
	}
	return nil
}

func (r *repository) OpenLoanCountByPatron(ctx context.Context, patronID string) (int, error) {
	q := `
select count(*) from loans
where patron_id = $1 and return_date is null`
	var count int
	if err := r.db.QueryRowContext(ctx, q, patronID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) OpenLoanCountByBook(ctx context.Context, bookID int) (int, error) {
	q := `
select count(*) from loans
where book_id = $1 and return_date is null`
	var count int
	if err := r.db.QueryRowContext(ctx, q, bookID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) PatronLoans(ctx context.Context, patronID string) ([]model.PatronLoan, error) {
	q, args, err := qb.Select("l.id", "loan_uid", "patron_id", "book_id", "borrow_date", "due_date", "return_date", "fee", "b.title").
		From(loansTableName + " l").
		Join(booksTableName + " b on b.id = l.book_id").
		Where(sq.Eq{"patron_id": patronID}).
		OrderBy("borrow_date").
		ToSql()
	if err != nil {
		return nil, err
	}

	loans := make([]model.PatronLoan, 0)
	if err := r.db.SelectContext(ctx, &loans, q, args...); err != nil {
		return nil, err
	}
	return loans, nil
}
