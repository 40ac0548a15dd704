package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/libtrack/libtrack/internal/errs"
	"github.com/libtrack/libtrack/internal/fee"
	"github.com/libtrack/libtrack/internal/model"
)

// GetPatronStatus aggregates the patron's open loans, owed fees and
// full borrowing history. Open-loan fees are evaluated as of now;
// closed loans contribute the fee stored at return time.
func (s *Service) GetPatronStatus(ctx context.Context, patronID string) (model.StatusReport, error) {
	if err := validPatronID(patronID); err != nil {
		return model.StatusReport{}, err
	}

	loans, err := s.repo.PatronLoans(ctx, patronID)
	if err != nil {
		return model.StatusReport{}, err
	}
	if len(loans) == 0 && s.strictStatus {
		return model.StatusReport{}, errors.Wrap(errs.ErrNotFound, "patron has no loans")
	}

	now := s.now()
	report := model.StatusReport{
		PatronID:     patronID,
		CurrentLoans: make([]model.CurrentLoan, 0),
		History:      make([]model.HistoryItem, 0, len(loans)),
	}

	for _, l := range loans {
		report.History = append(report.History, model.HistoryItem{
			BookID:     l.BookID,
			Title:      l.Title,
			BorrowDate: l.BorrowDate,
			ReturnDate: l.ReturnDate,
		})

		if l.Open() {
			report.CurrentLoans = append(report.CurrentLoans, model.CurrentLoan{
				BookID:  l.BookID,
				Title:   l.Title,
				DueDate: l.DueDate,
			})
			_, owed := fee.Compute(l.DueDate, now)
			report.TotalFeesOwed += owed
			continue
		}
		if l.Fee != nil {
			report.TotalFeesOwed += *l.Fee
		}
	}
	report.BorrowedCount = len(report.CurrentLoans)

	return report, nil
}
