// Package predictiondb reads the externally populated prediction tables.
// The tables are owned by a batch job; this package never writes or migrates them.
package predictiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"   // PostgreSQL driver for the managed store.
	_ "modernc.org/sqlite" // Pure-Go SQLite driver for local copies.

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Compile-time interface check.
var _ interfaces.PredictionStore = (*Store)(nil)

// Store implements interfaces.PredictionStore over database/sql.
type Store struct {
	db     *sql.DB
	driver string
	logger *common.Logger
}

// Open connects to the prediction store described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg common.PredictionsConfig, logger *common.Logger) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported prediction store driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open prediction store: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to prediction store: %w", err)
	}

	logger.Info().Str("driver", driver).Msg("Prediction store connected")
	return New(db, driver, logger), nil
}

// New wraps an open *sql.DB. driver selects the placeholder style.
func New(db *sql.DB, driver string, logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{db: db, driver: driver, logger: logger}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

var (
	sharedPredictionColumns = []string{
		"symbol", "date", "sector",
		"pred_open", "pred_close", "actual_open", "actual_close",
		"pred_open_sign", "pred_close_sign", "actual_open_sign", "actual_close_sign",
	}
	dailyPredictionColumns = []string{
		"pred", "pred_sign", "actual", "actual_sign",
		"within_95c", "outside_95c", "on_95c_bound",
	}
	accuracyColumns = []string{
		"symbol", "backtest_accuracy", "live_accuracy", "sector", "industry", "market_cap",
		"upper_95C", "lower_95C", "upper_95C_open", "lower_95C_open", "upper_95C_close", "lower_95C_close",
	}
)

func predictionColumns(g models.Granularity) []string {
	if !g.HasDailyColumns() {
		return sharedPredictionColumns
	}
	cols := make([]string, 0, len(sharedPredictionColumns)+len(dailyPredictionColumns))
	cols = append(cols, sharedPredictionColumns...)
	return append(cols, dailyPredictionColumns...)
}

// predictionDest returns scan targets in predictionColumns order.
func predictionDest(r *models.PredictionRecord) []any {
	dest := []any{
		&r.Symbol, &r.Date, &r.Sector,
		&r.PredOpen, &r.PredClose, &r.ActualOpen, &r.ActualClose,
		&r.PredOpenSign, &r.PredCloseSign, &r.ActualOpenSign, &r.ActualCloseSign,
	}
	if r.Granularity.HasDailyColumns() {
		dest = append(dest,
			&r.Pred, &r.PredSign, &r.Actual, &r.ActualSign,
			&r.Within95C, &r.Outside95C, &r.On95CBound,
		)
	}
	return dest
}

// LatestPrediction returns the row at the most recent date for the symbol.
func (s *Store) LatestPrediction(ctx context.Context, symbol string, g models.Granularity) (*models.PredictionRecord, error) {
	table := quoteIdent(g.PredictionTable())
	query := s.rebind(fmt.Sprintf(
		`SELECT %s FROM %s WHERE UPPER("symbol") = UPPER(?) AND "date" = (SELECT MAX("date") FROM %s WHERE UPPER("symbol") = UPPER(?)) ORDER BY "symbol" LIMIT 1`,
		columnList(predictionColumns(g)), table, table,
	))

	rec := &models.PredictionRecord{Granularity: g}
	err := s.db.QueryRowContext(ctx, query, symbol, symbol).Scan(predictionDest(rec)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("prediction")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %s: %w", g.PredictionTable(), symbol, err)
	}
	return rec, nil
}

// Accuracy returns the confidence-interval row for the symbol.
func (s *Store) Accuracy(ctx context.Context, symbol string, g models.Granularity) (*models.AccuracyRecord, error) {
	query := s.rebind(fmt.Sprintf(
		`SELECT %s FROM %s WHERE UPPER("symbol") = UPPER(?) LIMIT 1`,
		columnList(accuracyColumns), quoteIdent(g.AccuracyTable()),
	))

	a := &models.AccuracyRecord{Granularity: g}
	err := s.db.QueryRowContext(ctx, query, symbol).Scan(
		&a.Symbol, &a.BacktestAccuracy, &a.LiveAccuracy, &a.Sector, &a.Industry, &a.MarketCap,
		&a.Upper95C, &a.Lower95C, &a.Upper95COpen, &a.Lower95COpen, &a.Upper95CClose, &a.Lower95CClose,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("accuracy")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %s: %w", g.AccuracyTable(), symbol, err)
	}
	return a, nil
}

// AllAtLatestDate returns every row at the table-wide latest date.
// The latest date is global, not per symbol.
func (s *Store) AllAtLatestDate(ctx context.Context, g models.Granularity, order interfaces.PredictionOrder, limit int) ([]*models.PredictionRecord, error) {
	table := quoteIdent(g.PredictionTable())

	var orderBy string
	switch order {
	case interfaces.OrderBySymbol:
		orderBy = `"symbol" ASC`
	default:
		// pred_close * 100 orders the same as pred_close
		orderBy = `("pred_close" IS NULL) ASC, "pred_close" DESC, "symbol" ASC`
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE "date" = (SELECT MAX("date") FROM %s) ORDER BY %s`,
		columnList(predictionColumns(g)), table, table, orderBy,
	)
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", g.PredictionTable(), err)
	}
	defer rows.Close()

	records := make([]*models.PredictionRecord, 0)
	for rows.Next() {
		rec := &models.PredictionRecord{Granularity: g}
		if err := rows.Scan(predictionDest(rec)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", g.PredictionTable(), err)
		}
		rec.AnnotatePredictedChange()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", g.PredictionTable(), err)
	}

	s.logger.Debug().Str("table", g.PredictionTable()).Int("rows", len(records)).Msg("Loaded latest predictions")
	return records, nil
}

// LatestGrade returns the most recent monthly grade for the symbol.
func (s *Store) LatestGrade(ctx context.Context, symbol string) (*models.MonthlyGrade, error) {
	query := s.rebind(`SELECT "symbol", "date", "grade_sign", "grade_class" FROM "MonthlyGrades" WHERE UPPER("symbol") = UPPER(?) ORDER BY "date" DESC LIMIT 1`)

	g := &models.MonthlyGrade{}
	err := s.db.QueryRowContext(ctx, query, symbol).Scan(&g.Symbol, &g.Date, &g.GradeSign, &g.GradeClass)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("grade")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query MonthlyGrades for %s: %w", symbol, err)
	}
	return g, nil
}
