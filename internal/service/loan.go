package service

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libtrack/libtrack/internal/errs"
	"github.com/libtrack/libtrack/internal/fee"
	"github.com/libtrack/libtrack/internal/model"
	"github.com/libtrack/libtrack/pkg/kafka"
)

func (s *Service) Borrow(ctx context.Context, patronID string, bookID int) (model.Loan, error) {
	if err := validPatronID(patronID); err != nil {
		return model.Loan{}, err
	}

	unlock := s.locks.lock(bookID)
	defer unlock()

	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return model.Loan{}, err
	}

	count, err := s.repo.OpenLoanCountByPatron(ctx, patronID)
	if err != nil {
		return model.Loan{}, err
	}
	if count >= maxOpenLoans {
		return model.Loan{}, errors.Wrapf(errs.ErrConflict, "borrowing limit of %d books reached", maxOpenLoans)
	}

	// Conditional decrement first: it is the operation that can tell
	// us atomically that no copies are left.
	if err := s.repo.AvailableCount(ctx, bookID, false); err != nil {
		return model.Loan{}, err
	}

	now := s.now()
	loan, err := s.repo.CreateLoan(ctx, model.Loan{
		LoanUid:    uuid.NewString(),
		PatronID:   patronID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, loanPeriodDays),
	})
	if err != nil {
		// Give the copy back, the loan was not created.
		if rbErr := s.repo.AvailableCount(ctx, bookID, true); rbErr != nil {
			s.log.Error("borrow rollback", zap.Error(rbErr))
		}
		return model.Loan{}, err
	}

	s.publish(kafka.LoanEvent{
		Type:     kafka.EventBorrow,
		LoanUid:  loan.LoanUid,
		PatronID: patronID,
		BookID:   bookID,
	})

	return loan, nil
}

func (s *Service) Return(ctx context.Context, patronID string, bookID int) (model.ReturnResponse, error) {
	if err := validPatronID(patronID); err != nil {
		return model.ReturnResponse{}, err
	}

	unlock := s.locks.lock(bookID)
	defer unlock()

	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return model.ReturnResponse{}, err
	}

	loan, err := s.repo.GetOpenLoan(ctx, patronID, bookID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return model.ReturnResponse{}, err
		}
		// Tell "nobody has this book out" apart from "someone else has".
		open, cntErr := s.repo.OpenLoanCountByBook(ctx, bookID)
		if cntErr != nil {
			return model.ReturnResponse{}, cntErr
		}
		if open == 0 {
			return model.ReturnResponse{}, errors.Wrap(errs.ErrNotFound, "book has no open loans")
		}
		return model.ReturnResponse{}, errors.Wrap(errs.ErrConflict, "book is not borrowed by this patron")
	}

	now := s.now()
	daysOverdue, amount := fee.Compute(loan.DueDate, now)

	if err := s.repo.CloseLoan(ctx, loan.ID, now, amount); err != nil {
		return model.ReturnResponse{}, err
	}
	if err := s.repo.AvailableCount(ctx, bookID, true); err != nil {
		return model.ReturnResponse{}, err
	}

	s.publish(kafka.LoanEvent{
		Type:     kafka.EventReturn,
		LoanUid:  loan.LoanUid,
		PatronID: patronID,
		BookID:   bookID,
		Fee:      amount,
	})

	return model.ReturnResponse{
		Message:     "book returned",
		Fee:         amount,
		DaysOverdue: daysOverdue,
	}, nil
}

// LateFee reports the fee owed so far on the patron's open loan.
func (s *Service) LateFee(ctx context.Context, patronID string, bookID int) (model.LateFeeResponse, error) {
	if err := validPatronID(patronID); err != nil {
		return model.LateFeeResponse{}, err
	}

	loan, err := s.repo.GetOpenLoan(ctx, patronID, bookID)
	if err != nil {
		return model.LateFeeResponse{}, err
	}

	daysOverdue, amount := fee.Compute(loan.DueDate, s.now())
	return model.LateFeeResponse{
		Fee:         amount,
		DaysOverdue: daysOverdue,
	}, nil
}

func (s *Service) publish(event kafka.LoanEvent) {
	if s.producer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error("marshal loan event", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{Topic: kafka.LoanTopic, Value: sarama.StringEncoder(data)}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.log.Error("publish loan event", zap.Error(err), zap.String("loanUid", event.LoanUid))
	}
}
