package predictiondb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fleece/internal/common"
	tcommon "github.com/bobmcallan/fleece/tests/common"
)

var testSeed = []string{
	// AAPL has two daily rows; the later one is the latest
	`INSERT INTO "PredsDaily" ("symbol","date","pred","pred_sign","actual","actual_sign","sector","pred_open","pred_close","actual_open","actual_close","pred_open_sign","pred_close_sign","actual_open_sign","actual_close_sign","within_95c","outside_95c","on_95c_bound")
		VALUES ('AAPL','2024-03-27',1.1000,1,NULL,NULL,'Technology',0.01,0.02,NULL,NULL,1,1,NULL,NULL,NULL,NULL,NULL)`,
	`INSERT INTO "PredsDaily" ("symbol","date","pred","pred_sign","actual","actual_sign","sector","pred_open","pred_close","actual_open","actual_close","pred_open_sign","pred_close_sign","actual_open_sign","actual_close_sign","within_95c","outside_95c","on_95c_bound")
		VALUES ('AAPL','2024-03-28',1.2345,1,-0.5000,-1,'Technology',0.01,0.05,0.02,-0.01,1,1,1,-1,TRUE,FALSE,FALSE)`,
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('MSFT','2024-03-28','Technology',0.08)`,
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('NVDA','2024-03-28','Technology',NULL)`,
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('AMD','2024-03-28','Technology',0.05)`,
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('XOM','2024-03-28','Energy',-0.03)`,
	// TSLA has no row at the global latest date
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('TSLA','2024-03-20','Consumer Cyclical',0.30)`,

	`INSERT INTO "PredsWeekly" ("symbol","date","sector","pred_open","pred_close") VALUES ('AAPL','2024-03-25','Technology',0.02,0.04)`,
	`INSERT INTO "PredsMonthly" ("symbol","date","sector","pred_open","pred_close") VALUES ('AAPL','2024-03-01','Technology',0.03,0.07)`,

	`INSERT INTO "AccuracyDaily" ("symbol","backtest_accuracy","live_accuracy","sector","industry","market_cap","upper_95C","lower_95C","upper_95C_open","lower_95C_open","upper_95C_close","lower_95C_close")
		VALUES ('AAPL',0.61,0.58,'Information Technology','Consumer Electronics',2620000000000,1.2,-0.8,1.1,-0.7,1.3,-0.9)`,
	`INSERT INTO "AccuracyWeekly" ("symbol","backtest_accuracy") VALUES ('AAPL',0.55)`,

	`INSERT INTO "MonthlyGrades" ("symbol","date","grade_sign","grade_class") VALUES ('AAPL','2024-02-01',-1,'Sell')`,
	`INSERT INTO "MonthlyGrades" ("symbol","date","grade_sign","grade_class") VALUES ('AAPL','2024-03-01',1,'Strong Buy')`,
}

// newTestStore returns a Store over a seeded in-memory SQLite database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, tcommon.CreatePredictionSchema(context.Background(), db, testSeed...))

	return New(db, DriverSQLite, common.NewSilentLogger())
}
