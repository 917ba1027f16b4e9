// Package market builds the stock detail view and symbol search.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
	"github.com/bobmcallan/fleece/internal/signals"
)

const (
	maxHistoryBars = 500
	searchLimit    = 5
)

// Compile-time interface check
var _ interfaces.MarketService = (*Service)(nil)

// Service implements MarketService
type Service struct {
	eodhd       interfaces.EODHDClient
	quotes      interfaces.QuoteService
	predictions interfaces.PredictionStore
	fanoutLimit int
	itemTimeout time.Duration
	logger      *common.Logger
	now         func() time.Time
}

// NewService creates a new market service
func NewService(
	eodhd interfaces.EODHDClient,
	quotes interfaces.QuoteService,
	predictions interfaces.PredictionStore,
	cfg *common.Config,
	logger *common.Logger,
) *Service {
	return &Service{
		eodhd:       eodhd,
		quotes:      quotes,
		predictions: predictions,
		fanoutLimit: cfg.Clients.EODHD.FanoutLimit,
		itemTimeout: cfg.Clients.EODHD.GetItemTimeout(),
		logger:      logger,
		now:         time.Now,
	}
}

// StockDetail assembles the composite view for one symbol. Only the
// snapshot is required; every other section degrades on its own.
func (s *Service) StockDetail(ctx context.Context, symbol string) (*models.StockDetail, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, common.InvalidArgument("Symbol is required")
	}

	snap, err := s.quotes.Snapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var (
		bars       []models.EODBar
		company    *models.CompanyMetadata
		grade      *models.MonthlyGrade
		indicators = make([]map[string]float64, len(signals.Detail))
	)

	tasks := []func(context.Context){
		func(ctx context.Context) { bars = s.history(ctx, symbol) },
		func(ctx context.Context) { company = s.company(ctx, symbol) },
		func(ctx context.Context) { grade = s.grade(ctx, symbol) },
	}
	for i, ind := range signals.Detail {
		tasks = append(tasks, func(ctx context.Context) {
			indicators[i] = s.indicator(ctx, symbol, ind)
		})
	}
	common.FanOut(ctx, len(tasks), s.fanoutLimit, s.itemTimeout, func(ctx context.Context, i int) {
		tasks[i](ctx)
	})

	detail := &models.StockDetail{
		Symbol:     symbol,
		Snapshot:   *snap,
		History:    make([]models.PricePoint, 0, len(bars)),
		Company:    company,
		Indicators: make(map[string]map[string]float64, len(signals.Detail)),
		Grade:      *grade,
	}
	for _, b := range bars {
		detail.History = append(detail.History, models.PricePoint{
			Date:   b.Date.Format(models.DateLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	// Fill gaps from the loaded history
	newestFirst := reverseBars(bars)
	for i, ind := range signals.Detail {
		values := indicators[i]
		if values == nil && len(newestFirst) > 0 {
			values = signals.Compute(ind, newestFirst)
			if values != nil {
				s.logger.Debug().Str("symbol", symbol).Str("indicator", ind.Key).Msg("Indicator computed from history")
			}
		}
		detail.Indicators[ind.Key] = values
	}
	if company != nil && len(newestFirst) > 0 {
		if company.High52Week == nil {
			h := signals.High52Week(newestFirst)
			company.High52Week = &h
		}
		if company.Low52Week == nil {
			l := signals.Low52Week(newestFirst)
			company.Low52Week = &l
		}
	}

	return detail, nil
}

// history returns up to a year of daily bars, oldest first. Failures are
// logged and yield no bars.
func (s *Service) history(ctx context.Context, symbol string) []models.EODBar {
	bars, err := s.fetchHistory(ctx, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch price history")
		return nil
	}
	return bars
}

// fetchHistory loads a year of daily bars ascending, keeping the most
// recent maxHistoryBars.
func (s *Service) fetchHistory(ctx context.Context, symbol string) ([]models.EODBar, error) {
	to := s.now()
	resp, err := s.eodhd.GetEOD(ctx, symbol,
		interfaces.WithDateRange(to.AddDate(-1, 0, 0), to),
		interfaces.WithPeriod("d"),
		interfaces.WithOrder("a"),
		interfaces.WithLimit(maxHistoryBars),
	)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	bars := resp.Data
	if len(bars) > maxHistoryBars {
		bars = bars[len(bars)-maxHistoryBars:]
	}
	return bars, nil
}

func (s *Service) company(ctx context.Context, symbol string) *models.CompanyMetadata {
	meta, err := s.eodhd.GetFundamentals(ctx, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch company metadata")
		return nil
	}
	return meta
}

// indicator returns the most recent point of the provider series.
func (s *Service) indicator(ctx context.Context, symbol string, ind signals.Indicator) map[string]float64 {
	points, err := s.eodhd.GetTechnicals(ctx, symbol, ind.Function, ind.Params())
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Str("indicator", ind.Key).Msg("Failed to fetch indicator")
		return nil
	}
	if len(points) == 0 || len(points[0].Values) == 0 {
		return nil
	}
	return points[0].Values
}

// grade returns the latest monthly grade, or a null-valued placeholder.
func (s *Service) grade(ctx context.Context, symbol string) *models.MonthlyGrade {
	g, err := s.predictions.LatestGrade(ctx, symbol)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to load monthly grade")
		}
		return &models.MonthlyGrade{}
	}
	return &models.MonthlyGrade{GradeSign: g.GradeSign, GradeClass: g.GradeClass}
}

// Search returns up to five symbols matching query. A blank query returns
// an empty list without calling the provider.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}

	results, err := s.eodhd.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, common.Upstream(fmt.Errorf("search %q: %w", query, err))
	}
	if results == nil {
		return []models.SearchResult{}, nil
	}
	if len(results) > searchLimit {
		results = results[:searchLimit]
	}
	return results, nil
}

func reverseBars(bars []models.EODBar) []models.EODBar {
	out := make([]models.EODBar, len(bars))
	for i, b := range bars {
		out[len(bars)-1-i] = b
	}
	return out
}
