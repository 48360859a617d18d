package leaderboardservice

import (
	"bytes"
	"context"
	"fmt"

	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/flagboard/internal/results"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultChartLimit caps the bars drawn when no limit is given.
const DefaultChartLimit = 10

// ChartPalette colours a rendered chart.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	Accent     drawing.Color
	Text       drawing.Color
}

// DefaultPalette is a dark terminal-style palette.
var DefaultPalette = ChartPalette{
	Background: drawing.ColorFromHex("0d1117"),
	Bar:        drawing.ColorFromHex("2ea043"),
	Accent:     drawing.ColorFromHex("f2cc60"),
	Text:       drawing.ColorFromHex("c9d1d9"),
}

// RenderChart draws the top limit entries as a PNG bar chart.
func (s *LeaderboardService) RenderChart(ctx context.Context, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultChartLimit
	}
	result, err := withTelemetry(s, ctx, "RenderChart", fmt.Sprint(limit), func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		entries, err := s.repo.ListEntries(ctx, limit)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}
		png, err := GenerateLeaderboardChart(entries, DefaultPalette)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to render chart: %w", err)
		}
		return results.SuccessResult[[]byte, error](png), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// GenerateLeaderboardChart produces a PNG bar chart of entry points in the
// given order. The top entry is drawn in the accent colour.
func GenerateLeaderboardChart(entries []leaderboarddomain.Entry, palette ChartPalette) ([]byte, error) {
	var maxPoints int64
	for _, e := range entries {
		if e.TotalPoints > maxPoints {
			maxPoints = e.TotalPoints
		}
	}
	if maxPoints == 0 {
		return renderNoDataPlaceholder(palette)
	}

	bars := make([]chart.Value, len(entries))
	for i, e := range entries {
		label := e.Username
		if label == "" {
			label = e.DisplayName
		}
		if label == "" {
			label = e.UserID
		}
		color := palette.Bar
		if i == 0 {
			color = palette.Accent
		}
		bars[i] = chart.Value{
			Label: label,
			Value: float64(e.TotalPoints),
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
			},
		}
	}

	graph := chart.BarChart{
		Title:  "Leaderboard",
		Width:  900,
		Height: 450,
		TitleStyle: chart.Style{
			FontColor: palette.Text,
		},
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.Style{
			FontColor: palette.Text,
		},
		YAxis: chart.YAxis{
			Name: "Points",
			Style: chart.Style{
				FontColor: palette.Text,
			},
			// Anchored at zero so a single or all-tied board still has height.
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: float64(maxPoints) * 1.1,
			},
		},
		BarWidth: 50,
		Bars:     bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No scores yet"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		// go-chart refuses to render without a series.
		Series: []chart.Series{chart.ContinuousSeries{
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
		}},
		XAxis: chart.XAxis{Style: chart.Style{Hidden: true}},
		YAxis: chart.YAxis{Style: chart.Style{Hidden: true}},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				if chartDefaults.Font != nil {
					r.SetFont(chartDefaults.Font)
				}
				r.SetFontColor(palette.Text)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
