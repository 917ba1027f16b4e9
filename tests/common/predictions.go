package common

import (
	"context"
	"database/sql"
	"fmt"
)

// PredictionSchema mirrors the tables the batch job maintains. Only tests
// create it; the server never migrates the prediction store.
var PredictionSchema = []string{
	`CREATE TABLE "PredsDaily" (
		"symbol" VARCHAR(10) NOT NULL, "date" DATE NOT NULL,
		"pred" DECIMAL(10,4), "pred_sign" INTEGER, "actual" DECIMAL(10,4), "actual_sign" INTEGER,
		"sector" VARCHAR(100),
		"pred_open" DOUBLE PRECISION, "pred_close" DOUBLE PRECISION, "actual_open" DOUBLE PRECISION, "actual_close" DOUBLE PRECISION,
		"pred_open_sign" INTEGER, "pred_close_sign" INTEGER, "actual_open_sign" INTEGER, "actual_close_sign" INTEGER,
		"within_95c" BOOLEAN, "outside_95c" BOOLEAN, "on_95c_bound" BOOLEAN,
		PRIMARY KEY ("symbol", "date"))`,
	`CREATE TABLE "PredsWeekly" (
		"symbol" VARCHAR(10) NOT NULL, "date" DATE NOT NULL, "sector" VARCHAR(100),
		"pred_open" DOUBLE PRECISION, "pred_close" DOUBLE PRECISION, "actual_open" DOUBLE PRECISION, "actual_close" DOUBLE PRECISION,
		"pred_open_sign" INTEGER, "pred_close_sign" INTEGER, "actual_open_sign" INTEGER, "actual_close_sign" INTEGER,
		PRIMARY KEY ("symbol", "date"))`,
	`CREATE TABLE "PredsMonthly" (
		"symbol" VARCHAR(10) NOT NULL, "date" DATE NOT NULL, "sector" VARCHAR(100),
		"pred_open" DOUBLE PRECISION, "pred_close" DOUBLE PRECISION, "actual_open" DOUBLE PRECISION, "actual_close" DOUBLE PRECISION,
		"pred_open_sign" INTEGER, "pred_close_sign" INTEGER, "actual_open_sign" INTEGER, "actual_close_sign" INTEGER,
		PRIMARY KEY ("symbol", "date"))`,
	accuracyDDL("AccuracyDaily"),
	accuracyDDL("AccuracyWeekly"),
	accuracyDDL("AccuracyMonthly"),
	`CREATE TABLE "MonthlyGrades" (
		"symbol" VARCHAR(10) NOT NULL, "date" DATE NOT NULL,
		"grade_sign" INTEGER, "grade_class" VARCHAR(20),
		PRIMARY KEY ("symbol", "date"))`,
}

func accuracyDDL(table string) string {
	return `CREATE TABLE "` + table + `" (
		"symbol" VARCHAR(10) PRIMARY KEY,
		"backtest_accuracy" DOUBLE PRECISION, "live_accuracy" DOUBLE PRECISION,
		"sector" VARCHAR(100), "industry" VARCHAR(100), "market_cap" DOUBLE PRECISION,
		"upper_95C" DOUBLE PRECISION, "lower_95C" DOUBLE PRECISION,
		"upper_95C_open" DOUBLE PRECISION, "lower_95C_open" DOUBLE PRECISION,
		"upper_95C_close" DOUBLE PRECISION, "lower_95C_close" DOUBLE PRECISION)`
}

// CreatePredictionSchema creates the prediction tables and runs seed.
func CreatePredictionSchema(ctx context.Context, db *sql.DB, seed ...string) error {
	for _, stmt := range PredictionSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, stmt := range seed {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed %q: %w", stmt, err)
		}
	}
	return nil
}
