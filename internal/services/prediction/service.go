// Package prediction serves the model output tables.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

const (
	DefaultTopCount = 20
	MaxTopCount     = 500
)

// Compile-time interface check
var _ interfaces.PredictionService = (*Service)(nil)

// Service implements PredictionService
type Service struct {
	store  interfaces.PredictionStore
	logger *common.Logger
}

// NewService creates a new prediction service
func NewService(store interfaces.PredictionStore, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// PredictionDetail returns the latest prediction for symbol with its
// accuracy row overlaid.
func (s *Service) PredictionDetail(ctx context.Context, symbol string, g models.Granularity) (map[string]any, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, common.InvalidArgument("Symbol is required")
	}

	pred, err := s.store.LatestPrediction(ctx, symbol, g)
	if err != nil {
		return nil, err
	}
	acc, err := s.store.Accuracy(ctx, symbol, g)
	if err != nil {
		return nil, err
	}

	return models.MergeFields(pred, acc), nil
}

// TopPredictions returns the count rows at the latest date with the highest
// predicted change. A zero count means DefaultTopCount.
func (s *Service) TopPredictions(ctx context.Context, g models.Granularity, count int) ([]*models.PredictionRecord, error) {
	if count == 0 {
		count = DefaultTopCount
	}
	if count < 0 || count > MaxTopCount {
		return nil, common.InvalidArgument(fmt.Sprintf("count must be between 1 and %d", MaxTopCount))
	}

	records, err := s.store.AllAtLatestDate(ctx, g, interfaces.OrderByPredictedChange, count)
	if err != nil {
		return nil, err
	}
	if len(records) > count {
		records = records[:count]
	}
	return records, nil
}

// AllPredictions returns every row at the latest date ordered by symbol.
func (s *Service) AllPredictions(ctx context.Context, g models.Granularity) ([]*models.PredictionRecord, error) {
	return s.store.AllAtLatestDate(ctx, g, interfaces.OrderBySymbol, 0)
}

// PredictedChange returns the latest daily predicted change for symbol, or
// nil when the symbol has no daily prediction.
func (s *Service) PredictedChange(ctx context.Context, symbol string) (*float64, error) {
	rec, err := s.store.LatestPrediction(ctx, symbol, models.GranularityDaily)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.PredictedChange(), nil
}
