package predictiondb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	assert.Equal(t, `SELECT 1 WHERE a = $1 AND b = $2`, pg.rebind(`SELECT 1 WHERE a = ? AND b = ?`))

	lite := &Store{driver: DriverSQLite}
	assert.Equal(t, `SELECT 1 WHERE a = ?`, lite.rebind(`SELECT 1 WHERE a = ?`))
}

func TestLatestPrediction_PicksMaxDateCaseInsensitive(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.LatestPrediction(context.Background(), "aapl", models.GranularityDaily)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, "2024-03-28", rec.Date.String())
	require.NotNil(t, rec.PredClose)
	assert.InDelta(t, 0.05, *rec.PredClose, 1e-9)
	assert.True(t, rec.Pred.Valid)
	assert.Equal(t, "1.2345", rec.Pred.Decimal.StringFixed(4))
	require.NotNil(t, rec.Within95C)
	assert.True(t, *rec.Within95C)
	require.NotNil(t, rec.Outside95C)
	assert.False(t, *rec.Outside95C)
	require.NotNil(t, rec.ActualCloseSign)
	assert.Equal(t, -1, *rec.ActualCloseSign)
}

func TestLatestPrediction_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LatestPrediction(context.Background(), "ZZZZ", models.GranularityDaily)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "Prediction not found", common.Message(err))
}

func TestLatestPrediction_WeeklyOmitsDailyColumns(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.LatestPrediction(context.Background(), "AAPL", models.GranularityWeekly)
	require.NoError(t, err)

	fields := rec.Fields()
	assert.NotContains(t, fields, "pred")
	assert.NotContains(t, fields, "within_95c")
	assert.Contains(t, fields, "pred_close")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2024-03-25"`)
}

func TestAccuracy_FoundAndMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.Accuracy(ctx, "aapl", models.GranularityDaily)
	require.NoError(t, err)
	require.NotNil(t, acc.Upper95C)
	assert.Equal(t, 1.2, *acc.Upper95C)
	require.NotNil(t, acc.Industry)
	assert.Equal(t, "Consumer Electronics", *acc.Industry)

	_, err = store.Accuracy(ctx, "AAPL", models.GranularityMonthly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "Accuracy not found", common.Message(err))
}

func TestAllAtLatestDate_ByPredictedChange(t *testing.T) {
	store := newTestStore(t)

	recs, err := store.AllAtLatestDate(context.Background(), models.GranularityDaily, interfaces.OrderByPredictedChange, 0)
	require.NoError(t, err)

	symbols := make([]string, len(recs))
	for i, r := range recs {
		symbols[i] = r.Symbol
	}
	// Global latest date excludes TSLA; nulls sort last; ties by symbol
	assert.Equal(t, []string{"MSFT", "AAPL", "AMD", "XOM", "NVDA"}, symbols)

	require.NotNil(t, recs[0].PredictedChange())
	assert.InDelta(t, 8.0, *recs[0].PredictedChange(), 1e-9)
	assert.Nil(t, recs[4].PredictedChange())

	fields := recs[4].Fields()
	assert.Contains(t, fields, "predicted_change_percentage")
}

func TestAllAtLatestDate_LimitAndMonotonic(t *testing.T) {
	store := newTestStore(t)

	recs, err := store.AllAtLatestDate(context.Background(), models.GranularityDaily, interfaces.OrderByPredictedChange, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, *recs[i-1].PredictedChange(), *recs[i].PredictedChange())
	}
}

func TestAllAtLatestDate_BySymbol(t *testing.T) {
	store := newTestStore(t)

	recs, err := store.AllAtLatestDate(context.Background(), models.GranularityDaily, interfaces.OrderBySymbol, 0)
	require.NoError(t, err)

	symbols := make([]string, len(recs))
	for i, r := range recs {
		symbols[i] = r.Symbol
	}
	assert.Equal(t, []string{"AAPL", "AMD", "MSFT", "NVDA", "XOM"}, symbols)
}

func TestAllAtLatestDate_EmptyTable(t *testing.T) {
	store := newTestStore(t)
	_, err := store.db.Exec(`DELETE FROM "PredsMonthly"`)
	require.NoError(t, err)

	recs, err := store.AllAtLatestDate(context.Background(), models.GranularityMonthly, interfaces.OrderBySymbol, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)
}

func TestLatestGrade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	grade, err := store.LatestGrade(ctx, "aapl")
	require.NoError(t, err)
	require.NotNil(t, grade.GradeClass)
	assert.Equal(t, "Strong Buy", *grade.GradeClass)
	require.NotNil(t, grade.Date)
	assert.Equal(t, "2024-03-01", grade.Date.String())

	_, err = store.LatestGrade(ctx, "MSFT")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), common.PredictionsConfig{Driver: "mysql"}, common.NewSilentLogger())
	assert.Error(t, err)
}

func TestOpen_SQLiteFile(t *testing.T) {
	dsn := t.TempDir() + "/preds.db"
	store, err := Open(context.Background(), common.PredictionsConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 2}, common.NewSilentLogger())
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))
}
