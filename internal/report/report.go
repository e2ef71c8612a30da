package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"playerdash/internal/analytics"
)

// DefaultTimestampLayout renders event times like a US-English locale string
const DefaultTimestampLayout = "1/2/2006, 3:04:05 PM"

// Options controls how event timestamps are localized
type Options struct {
	TimestampLayout string
	Location        *time.Location
}

// Report is a flattened, row-oriented analytics export
type Report struct {
	Filename string
	Rows     [][]string // header first
}

// Build flattens res for sub. Rows: header, steps count, jumps count, max and
// average speed, then one row per step event and one per jump event.
func Build(sub analytics.Subject, res analytics.AnalyticsResult, opts Options) Report {
	if opts.TimestampLayout == "" {
		opts.TimestampLayout = DefaultTimestampLayout
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	rows := make([][]string, 0, 5+len(res.Steps.Events)+len(res.Jumps.Events))
	rows = append(rows,
		[]string{"Metric", "Value"},
		[]string{"Steps Count", strconv.Itoa(res.Steps.Count)},
		[]string{"Jumps Count", strconv.Itoa(res.Jumps.Count)},
		[]string{"Max Speed (m/s)", strconv.FormatFloat(res.Speed.Max, 'f', 2, 64)},
		[]string{"Average Speed (m/s)", strconv.FormatFloat(res.Speed.Average, 'f', 2, 64)},
	)
	rows = appendEvents(rows, "Step", res.Steps.Events, opts)
	rows = appendEvents(rows, "Jump", res.Jumps.Events, opts)

	return Report{
		Filename: Filename(sub),
		Rows:     rows,
	}
}

// Filename returns "{name}_{team}_report.csv". Characters are not sanitized.
func Filename(sub analytics.Subject) string {
	return fmt.Sprintf("%s_%s_report.csv", sub.DisplayName, sub.GroupName)
}

// ChartFilename returns "{name}_{team}_chart.png"
func ChartFilename(sub analytics.Subject) string {
	return fmt.Sprintf("%s_%s_chart.png", sub.DisplayName, sub.GroupName)
}

// PathIn joins name onto dir. Path separators in name are replaced so the
// result always lands directly in dir.
func PathIn(dir, name string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, strings.NewReplacer("/", "_", `\`, "_").Replace(name))
}

func appendEvents(rows [][]string, label string, events []analytics.Event, opts Options) [][]string {
	for i, e := range events {
		value := fmt.Sprintf("%s, Magnitude: %s",
			e.Time().In(opts.Location).Format(opts.TimestampLayout),
			formatNumber(e.Magnitude),
		)
		rows = append(rows, []string{fmt.Sprintf("%s %d", label, i+1), value})
	}
	return rows
}

// formatNumber prints a float in its shortest round-tripping decimal form
// without exponent for the usual magnitudes
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSV encodes the rows, quoting fields that contain the delimiter, a quote or
// a newline. Rows are separated by "\n" with no trailing newline.
func (r Report) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(r.Rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DataURL returns the CSV as a percent-escaped text/csv data URL
func (r Report) DataURL() (string, error) {
	data, err := r.CSV()
	if err != nil {
		return "", err
	}
	return "data:text/csv;charset=utf-8," + escapeComponent(data), nil
}

// escapeComponent percent-escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( )
func escapeComponent(data []byte) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(data) * 3)
	for _, c := range data {
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// Save writes the report into dir and returns the written path. Path
// separators in the filename are replaced so the file always lands in dir.
func Save(dir string, r Report) (string, error) {
	data, err := r.CSV()
	if err != nil {
		return "", err
	}
	path := PathIn(dir, r.Filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // export is meant to be readable
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
