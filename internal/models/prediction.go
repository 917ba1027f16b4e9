// Package models defines data structures for Fleece
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Granularity is the horizon a prediction table covers.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// Granularities lists every supported granularity.
var Granularities = []Granularity{GranularityDaily, GranularityWeekly, GranularityMonthly}

// ParseGranularity accepts daily/weekly/monthly in any case.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return g, nil
	}
	return "", fmt.Errorf("invalid timeFrame %q: must be one of daily, weekly, monthly", s)
}

// PredictionTable returns the prediction table name for g.
func (g Granularity) PredictionTable() string {
	switch g {
	case GranularityWeekly:
		return "PredsWeekly"
	case GranularityMonthly:
		return "PredsMonthly"
	default:
		return "PredsDaily"
	}
}

// AccuracyTable returns the confidence-interval table name for g.
func (g Granularity) AccuracyTable() string {
	switch g {
	case GranularityWeekly:
		return "AccuracyWeekly"
	case GranularityMonthly:
		return "AccuracyMonthly"
	default:
		return "AccuracyDaily"
	}
}

// HasDailyColumns reports whether the table carries the daily-only
// pred/actual/95c columns.
func (g Granularity) HasDailyColumns() bool {
	return g == GranularityDaily || g == ""
}

// PredictionRecord is one row of a Preds* table. The daily-only columns are
// left empty for weekly and monthly rows and omitted from Fields.
type PredictionRecord struct {
	Granularity Granularity
	Symbol      string
	Date        Date
	Sector      *string

	Pred       decimal.NullDecimal
	PredSign   *int
	Actual     decimal.NullDecimal
	ActualSign *int

	PredOpen    *float64
	PredClose   *float64
	ActualOpen  *float64
	ActualClose *float64

	PredOpenSign    *int
	PredCloseSign   *int
	ActualOpenSign  *int
	ActualCloseSign *int

	Within95C  *bool
	Outside95C *bool
	On95CBound *bool

	predictedChange *float64
	annotated       bool
}

// AnnotatePredictedChange attaches predicted_change_percentage, defined as
// pred_close * 100 (null when pred_close is null).
func (r *PredictionRecord) AnnotatePredictedChange() {
	r.annotated = true
	r.predictedChange = nil
	if r.PredClose != nil {
		v := *r.PredClose * 100
		r.predictedChange = &v
	}
}

// PredictedChange returns the annotated predicted change, if any.
func (r *PredictionRecord) PredictedChange() *float64 {
	if r.annotated {
		return r.predictedChange
	}
	if r.PredClose != nil {
		v := *r.PredClose * 100
		return &v
	}
	return nil
}

// Fields flattens the record into its column map.
func (r *PredictionRecord) Fields() map[string]any {
	m := map[string]any{
		"symbol":            r.Symbol,
		"date":              r.Date,
		"sector":            r.Sector,
		"pred_open":         r.PredOpen,
		"pred_close":        r.PredClose,
		"actual_open":       r.ActualOpen,
		"actual_close":      r.ActualClose,
		"pred_open_sign":    r.PredOpenSign,
		"pred_close_sign":   r.PredCloseSign,
		"actual_open_sign":  r.ActualOpenSign,
		"actual_close_sign": r.ActualCloseSign,
	}
	if r.Granularity.HasDailyColumns() {
		m["pred"] = decimalField(r.Pred)
		m["pred_sign"] = r.PredSign
		m["actual"] = decimalField(r.Actual)
		m["actual_sign"] = r.ActualSign
		m["within_95c"] = r.Within95C
		m["outside_95c"] = r.Outside95C
		m["on_95c_bound"] = r.On95CBound
	}
	if r.annotated {
		m["predicted_change_percentage"] = r.predictedChange
	}
	return m
}

func (r *PredictionRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// decimal(10,4) columns render as fixed-point strings.
func decimalField(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(4)
	return &s
}

// AccuracyRecord is one row of an Accuracy* table.
type AccuracyRecord struct {
	Granularity      Granularity
	Symbol           string
	BacktestAccuracy *float64
	LiveAccuracy     *float64
	Sector           *string
	Industry         *string
	MarketCap        *float64
	Upper95C         *float64
	Lower95C         *float64
	Upper95COpen     *float64
	Lower95COpen     *float64
	Upper95CClose    *float64
	Lower95CClose    *float64
}

// Fields flattens the record into its column map.
func (a *AccuracyRecord) Fields() map[string]any {
	return map[string]any{
		"symbol":            a.Symbol,
		"backtest_accuracy": a.BacktestAccuracy,
		"live_accuracy":     a.LiveAccuracy,
		"sector":            a.Sector,
		"industry":          a.Industry,
		"market_cap":        a.MarketCap,
		"upper_95C":         a.Upper95C,
		"lower_95C":         a.Lower95C,
		"upper_95C_open":    a.Upper95COpen,
		"lower_95C_open":    a.Lower95COpen,
		"upper_95C_close":   a.Upper95CClose,
		"lower_95C_close":   a.Lower95CClose,
	}
}

func (a *AccuracyRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Fields())
}

// MergeFields overlays the accuracy columns onto the prediction columns.
// Accuracy wins on key collision.
func MergeFields(p *PredictionRecord, a *AccuracyRecord) map[string]any {
	merged := p.Fields()
	for k, v := range a.Fields() {
		merged[k] = v
	}
	return merged
}

// MonthlyGrade is one row of the MonthlyGrades table.
type MonthlyGrade struct {
	Symbol     string  `json:"symbol,omitempty"`
	Date       *Date   `json:"date,omitempty"`
	GradeSign  *int    `json:"grade_sign"`
	GradeClass *string `json:"grade_class"`
}
