package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libtrack/libtrack/internal/errs"
	"github.com/libtrack/libtrack/internal/handler"
	"github.com/libtrack/libtrack/internal/model"
	"github.com/libtrack/libtrack/pkg/validate"

	service_mocks "github.com/libtrack/libtrack/internal/handler/mocks"
)

func TestHandler_Borrow(t *testing.T) {
	t.Parallel()
	type input struct {
		body     string
		patronID string
		bookID   int
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, req input)

	borrowDate := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patronID, req.bookID).
					Return(model.Loan{
						LoanUid:    "7e7b5ad0-64f3-4c5c-9a03-33a1399eac70",
						PatronID:   req.patronID,
						BookID:     req.bookID,
						BorrowDate: borrowDate,
						DueDate:    borrowDate.AddDate(0, 0, 14),
					}, nil)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":1}`,
				patronID: "123456",
				bookID:   1,
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"loanUid":"7e7b5ad0-64f3-4c5c-9a03-33a1399eac70","patronId":"123456","bookId":1,"borrowDate":"2024-03-01T10:00:00Z","dueDate":"2024-03-15T10:00:00Z"}`,
			},
			wantErr: false,
		},
		{
			name:         "err. malformed patron id",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {},
			input: input{
				body: `{"patronId":"12a456","bookId":1}`,
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"Key: 'BorrowRequest.PatronID' Error:Field validation for 'PatronID' failed on the 'numeric' tag"}`,
			},
			wantErr: true,
		},
		{
			name: "err. no copies available",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patronID, req.bookID).
					Return(model.Loan{}, errors.Wrap(errs.ErrConflict, "no copies available"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":1}`,
				patronID: "123456",
				bookID:   1,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"no copies available: conflict"}`,
			},
			wantErr: true,
		},
		{
			name: "err. unknown book",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Borrow(context.Background(), req.patronID, req.bookID).
					Return(model.Loan{}, errors.Wrap(errs.ErrNotFound, "book"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":99}`,
				patronID: "123456",
				bookID:   99,
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"book: not found"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			stats := service_mocks.NewMockStatsService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, stats, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/borrow", h.Borrow)

			r := httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(tt.input.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Return(t *testing.T) {
	t.Parallel()
	type input struct {
		body     string
		patronID string
		bookID   int
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, req input)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
	}{
		{
			name: "ok. overdue fee",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Return(context.Background(), req.patronID, req.bookID).
					Return(model.ReturnResponse{
						Message:     "book returned",
						Fee:         6.50,
						DaysOverdue: 10,
					}, nil)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":1}`,
				patronID: "123456",
				bookID:   1,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"message":"book returned","fee":6.5,"daysOverdue":10}`,
			},
		},
		{
			name: "err. not borrowed by this patron",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Return(context.Background(), req.patronID, req.bookID).
					Return(model.ReturnResponse{}, errors.Wrap(errs.ErrConflict, "book is not borrowed by this patron"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":1}`,
				patronID: "123456",
				bookID:   1,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"book is not borrowed by this patron: conflict"}`,
			},
		},
		{
			name: "err. book has no open loans",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Return(context.Background(), req.patronID, req.bookID).
					Return(model.ReturnResponse{}, errors.Wrap(errs.ErrNotFound, "book has no open loans"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":2}`,
				patronID: "123456",
				bookID:   2,
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"book has no open loans: not found"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			stats := service_mocks.NewMockStatsService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, stats, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/return", h.Return)

			r := httptest.NewRequest(http.MethodPost, "/return", strings.NewReader(tt.input.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Search(t *testing.T) {
	t.Parallel()
	type input struct {
		term       string
		searchType model.SearchType
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, req input)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
	}{
		{
			name: "ok. title substring",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Search(context.Background(), req.term, req.searchType).
					Return([]model.Book{
						{
							ID:              1,
							Title:           "The Great Gatsby",
							Author:          "F. Scott Fitzgerald",
							ISBN:            "9780743273565",
							TotalCopies:     2,
							AvailableCopies: 1,
						},
						{
							ID:              2,
							Title:           "the hobbit",
							Author:          "J.R.R. Tolkien",
							ISBN:            "9780547928227",
							TotalCopies:     1,
							AvailableCopies: 1,
						},
					}, nil)
			},
			input: input{term: "the", searchType: model.SearchByTitle},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"id":1,"title":"The Great Gatsby","author":"F. Scott Fitzgerald","isbn":"9780743273565","totalCopies":2,"availableCopies":1},{"id":2,"title":"the hobbit","author":"J.R.R. Tolkien","isbn":"9780547928227","totalCopies":1,"availableCopies":1}]`,
			},
		},
		{
			name: "ok. no matches",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Search(context.Background(), req.term, req.searchType).
					Return([]model.Book{}, nil)
			},
			input: input{term: "zzz", searchType: model.SearchByAuthor},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[]`,
			},
		},
		{
			name: "err. unknown type",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Search(context.Background(), req.term, req.searchType).
					Return(nil, errors.Wrapf(errs.ErrInvalidArgument, "search type %q", req.searchType))
			},
			input: input{term: "the", searchType: "genre"},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"search type \"genre\": invalid argument"}`,
			},
		},
		{
			name: "err. empty term",
			mockBehavior: func(r *service_mocks.MockLibraryService, req input) {
				r.EXPECT().
					Search(context.Background(), req.term, req.searchType).
					Return(nil, errors.Wrap(errs.ErrInvalidArgument, "search term is empty"))
			},
			input: input{term: "", searchType: model.SearchByTitle},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"search term is empty: invalid argument"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			stats := service_mocks.NewMockStatsService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, stats, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/search", h.Search)

			r := httptest.NewRequest(http.MethodGet,
				fmt.Sprintf("/search?q=%s&type=%s", tt.input.term, tt.input.searchType), http.NoBody)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_LateFee(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLibraryService(c)
	stats := service_mocks.NewMockStatsService(c)
	log := zap.NewExample().Named("test")
	h := handler.New(svc, stats, log)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.GET("/late_fee/:patronId/:bookId", h.LateFee)

	svc.EXPECT().
		LateFee(context.Background(), "123456", 1).
		Return(model.LateFeeResponse{Fee: 15.00, DaysOverdue: 30}, nil)

	r := httptest.NewRequest(http.MethodGet, "/late_fee/123456/1", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"fee":15,"daysOverdue":30}`, strings.Trim(w.Body.String(), "\n"))

	// Book id must be numeric.
	r = httptest.NewRequest(http.MethodGet, "/late_fee/123456/abc", http.NoBody)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, `{"message":"bookId is invalid"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_GetPatronStatus(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, patronID string)

	dueDate := time.Date(2024, time.April, 15, 8, 0, 0, 0, time.UTC)
	borrowDate := dueDate.AddDate(0, 0, -14)

	var tests = []struct {
		name         string
		patronID     string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:     "ok",
			patronID: "123456",
			mockBehavior: func(r *service_mocks.MockLibraryService, patronID string) {
				r.EXPECT().
					GetPatronStatus(context.Background(), patronID).
					Return(model.StatusReport{
						PatronID: patronID,
						CurrentLoans: []model.CurrentLoan{
							{BookID: 2, Title: "Blindsight", DueDate: dueDate},
						},
						TotalFeesOwed: 2.50,
						BorrowedCount: 1,
						History: []model.HistoryItem{
							{BookID: 2, Title: "Blindsight", BorrowDate: borrowDate},
						},
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"patronId":"123456","currentLoans":[{"bookId":2,"title":"Blindsight","dueDate":"2024-04-15T08:00:00Z"}],"totalFeesOwed":2.5,"borrowedCount":1,"history":[{"bookId":2,"title":"Blindsight","borrowDate":"2024-04-01T08:00:00Z"}]}`,
			},
		},
		{
			name:     "err. no loans",
			patronID: "777777",
			mockBehavior: func(r *service_mocks.MockLibraryService, patronID string) {
				r.EXPECT().
					GetPatronStatus(context.Background(), patronID).
					Return(model.StatusReport{}, errors.Wrap(errs.ErrNotFound, "patron has no loans"))
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"patron has no loans: not found"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			stats := service_mocks.NewMockStatsService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(svc, stats, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/patron/:patronId/status", h.GetPatronStatus)

			r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/patron/%s/status", tt.patronID), http.NoBody)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.patronID)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}
