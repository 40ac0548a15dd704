package handler

import (
	"context"

	"github.com/libtrack/libtrack/internal/model"
	"github.com/libtrack/libtrack/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	AddBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	Search(ctx context.Context, term string, searchType model.SearchType) ([]model.Book, error)
	Borrow(ctx context.Context, patronID string, bookID int) (model.Loan, error)
	Return(ctx context.Context, patronID string, bookID int) (model.ReturnResponse, error)
	LateFee(ctx context.Context, patronID string, bookID int) (model.LateFeeResponse, error)
	GetPatronStatus(ctx context.Context, patronID string) (model.StatusReport, error)
}

type StatsService interface {
	GetStats(ctx context.Context) (model.Stats, error)
}

var (
	_ LibraryService = (*service.Service)(nil)
	_ StatsService   = (*service.StatsService)(nil)
)
