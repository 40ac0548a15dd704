package model

import (
	"strings"
	"time"
)

type Book struct {
	ID              int    `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	ISBN            string `json:"isbn" db:"isbn"`
	TotalCopies     int    `json:"totalCopies" db:"total_copies"`
	AvailableCopies int    `json:"availableCopies" db:"available_copies"`
}

type Loan struct {
	ID         int        `json:"-" db:"id"`
	LoanUid    string     `json:"loanUid" db:"loan_uid"`
	PatronID   string     `json:"patronId" db:"patron_id"`
	BookID     int        `json:"bookId" db:"book_id"`
	BorrowDate time.Time  `json:"borrowDate" db:"borrow_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	Fee        *float64   `json:"fee,omitempty" db:"fee"`
}

// Open reports whether the loan has not been returned yet.
func (l Loan) Open() bool {
	return l.ReturnDate == nil
}

// PatronLoan is a loan joined with its book title for reporting.
type PatronLoan struct {
	Loan
	Title string `json:"title" db:"title"`
}

type SearchType string

const (
	SearchByTitle  SearchType = "title"
	SearchByAuthor SearchType = "author"
	SearchByISBN   SearchType = "isbn"
)

// NormalizeISBN strips hyphens and spaces and uppercases the rest,
// so "0-13-110362-8" and "0131103628" compare equal.
func NormalizeISBN(isbn string) string {
	s := strings.NewReplacer("-", "", " ", "").Replace(isbn)
	return strings.ToUpper(s)
}

type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=100"`
	ISBN        string `json:"isbn" validate:"required"`
	TotalCopies int    `json:"totalCopies" validate:"required,min=1"`
}

type BorrowRequest struct {
	PatronID string `json:"patronId" validate:"required,len=6,numeric"`
	BookID   int    `json:"bookId" validate:"required,min=1"`
}

type ReturnRequest struct {
	PatronID string `json:"patronId" validate:"required,len=6,numeric"`
	BookID   int    `json:"bookId" validate:"required,min=1"`
}

type ReturnResponse struct {
	Message     string  `json:"message"`
	Fee         float64 `json:"fee"`
	DaysOverdue int     `json:"daysOverdue"`
}

type LateFeeResponse struct {
	Fee         float64 `json:"fee"`
	DaysOverdue int     `json:"daysOverdue"`
}

type CurrentLoan struct {
	BookID  int       `json:"bookId"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"dueDate"`
}

type HistoryItem struct {
	BookID     int        `json:"bookId"`
	Title      string     `json:"title"`
	BorrowDate time.Time  `json:"borrowDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
}

type StatusReport struct {
	PatronID      string        `json:"patronId"`
	CurrentLoans  []CurrentLoan `json:"currentLoans"`
	TotalFeesOwed float64       `json:"totalFeesOwed"`
	BorrowedCount int           `json:"borrowedCount"`
	History       []HistoryItem `json:"history"`
}

type Stats struct {
	Borrowed int `json:"borrowed"`
	Returned int `json:"returned"`
}
