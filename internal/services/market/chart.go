package market

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/models"
)

const chartSMAPeriod = 50

// PriceChart renders the symbol's one-year close history as a PNG.
func (s *Service) PriceChart(ctx context.Context, symbol string) ([]byte, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, common.InvalidArgument("Symbol is required")
	}

	bars, err := s.fetchHistory(ctx, symbol)
	if err != nil {
		return nil, common.Upstream(fmt.Errorf("price history for %s: %w", symbol, err))
	}
	if len(bars) < 2 {
		return nil, common.NotFound("price history")
	}
	return RenderPriceChart(symbol, bars)
}

// RenderPriceChart renders a PNG line chart of daily closes, oldest first,
// with a 50-day moving average once there are enough bars.
// Returns raw PNG bytes.
func RenderPriceChart(symbol string, bars []models.EODBar) ([]byte, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("need at least 2 bars, got %d", len(bars))
	}

	xValues := make([]time.Time, len(bars))
	closeY := make([]float64, len(bars))
	for i, b := range bars {
		xValues[i] = b.Date
		closeY[i] = b.Close
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2,
		},
		XValues: xValues,
		YValues: closeY,
	}

	series := []chart.Series{closeSeries}
	if len(bars) >= chartSMAPeriod {
		series = append(series, &chart.SMASeries{
			Name: fmt.Sprintf("SMA %d", chartSMAPeriod),
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			Period:      chartSMAPeriod,
			InnerSeries: closeSeries,
		})
	}

	graph := chart.Chart{
		Title:  symbol,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
