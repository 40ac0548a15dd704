package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/libtrack/libtrack/internal/model"
	"github.com/libtrack/libtrack/pkg/kafka"
)

// StatsService tallies borrow/return counts from the loan-event topic.
type StatsService struct {
	log *zap.Logger

	mu    sync.Mutex
	stats model.Stats
}

func NewStatsService(log *zap.Logger) *StatsService {
	return &StatsService{log: log.Named("stats")}
}

func (s *StatsService) Record(_ context.Context, event kafka.LoanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case kafka.EventBorrow:
		s.stats.Borrowed++
	case kafka.EventReturn:
		s.stats.Returned++
	default:
		s.log.Warn("unknown loan event", zap.String("type", string(event.Type)))
	}
	return nil
}

func (s *StatsService) GetStats(_ context.Context) (model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, nil
}
