package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	AccelerationLabel = "Acceleration Magnitude (m/s²)"
	SpeedLabel        = "Instantaneous Speed (m/s)"
)

// ErrTooFewPoints is returned when a series cannot be drawn as a line
var ErrTooFewPoints = errors.New("chart needs at least two points")

var (
	accelerationColor = drawing.ColorFromHex("FFA500") // orange
	speedColor        = drawing.ColorFromHex("0000FF") // blue
)

// RenderOptions controls the PNG output
type RenderOptions struct {
	Width  int
	Height int
	Title  string
}

// DefaultRenderOptions matches the dashboard chart height
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Width:  1200,
		Height: 400,
		Title:  "Acceleration Magnitude and Instantaneous Speed Over Time",
	}
}

// RenderPNG draws both series against the shared time axis
func RenderPNG(w io.Writer, s Series, opts RenderOptions) error {
	if s.Len() < 2 {
		return ErrTooFewPoints
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultRenderOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}

	graph := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04:05"),
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    AccelerationLabel,
				XValues: s.X,
				YValues: s.Acceleration,
				Style:   gochart.Style{StrokeColor: accelerationColor, StrokeWidth: 1.5},
			},
			gochart.TimeSeries{
				Name:    SpeedLabel,
				XValues: s.X,
				YValues: s.Speed,
				Style:   gochart.Style{StrokeColor: speedColor, StrokeWidth: 1.5},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// SavePNG renders s into path, creating parent directories as needed
func SavePNG(path string, s Series, opts RenderOptions) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	return RenderPNG(f, s, opts)
}
