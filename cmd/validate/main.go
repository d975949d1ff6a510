// Command validate checks a JSON Lines training dataset against the feed it
// was built from. It verifies the row count, vector shapes, that every row
// matches what the window builder produces from the feed, and timestamp order.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -feed ml/data/feed.json \
//	  -dataset ml/data/train_dataset.jsonl \
//	  -input-steps 24 -horizon-steps 12
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/dataset"
	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

// maxReported caps the errors kept per phase.
const maxReported = 20

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) == maxReported {
		p.errors = append(p.errors, "further errors suppressed")
	}
	if len(p.errors) > maxReported {
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// rawRow is a dataset line decoded without fixed-size arrays so that wrong
// vector lengths are visible.
type rawRow struct {
	line      int
	X         [][]float64 `json:"x"`
	Y         []float64   `json:"y"`
	Timestamp string      `json:"timestamp"`
}

func main() {
	feedPath := flag.String("feed", "", "path to the JSON feed the dataset was built from")
	datasetPath := flag.String("dataset", "", "path to the dataset JSONL")
	inputSteps := flag.Int("input-steps", 24, "input timesteps used to build the dataset")
	horizonSteps := flag.Int("horizon-steps", 12, "horizon timesteps used to build the dataset")
	flag.Parse()

	if *feedPath == "" || *datasetPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := domain.WindowConfig{InputSteps: *inputSteps, HorizonSteps: *horizonSteps}
	os.Exit(run(os.Stdout, *feedPath, *datasetPath, cfg))
}

func run(out io.Writer, feedPath, datasetPath string, cfg domain.WindowConfig) int {
	fmt.Fprintln(out, "=== Dataset Integrity Validation ===")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	points, err := dataset.LoadFeed(feedPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load feed: %v\n", err)
		return 1
	}

	rows, err := loadRows(datasetPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load dataset: %v\n", err)
		return 1
	}

	expected, err := domain.BuildExamples(points, cfg)
	if err != nil {
		fmt.Fprintf(out, "FATAL: rebuild examples: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCount(rows, len(points), cfg),
		validateShapes(rows, cfg),
		validateContent(rows, expected),
		validateOrder(rows),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-36s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d feed points, %d dataset rows, %d expected rows\n",
		len(points), len(rows), len(expected))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadRows(path string) ([]rawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []rawRow
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		row := rawRow{line: line}
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, sc.Err()
}

// ── Phases ──

func validateCount(rows []rawRow, points int, cfg domain.WindowConfig) *phase {
	p := &phase{name: "Phase 1: Row Count"}
	want := max(0, points-cfg.InputSteps-cfg.HorizonSteps)
	if len(rows) != want {
		p.errorf("dataset has %d rows, want max(0, %d-%d-%d) = %d",
			len(rows), points, cfg.InputSteps, cfg.HorizonSteps, want)
	}
	return p
}

func validateShapes(rows []rawRow, cfg domain.WindowConfig) *phase {
	p := &phase{name: "Phase 2: Vector Shapes"}
	for _, r := range rows {
		if len(r.X) != cfg.InputSteps {
			p.errorf("line %d: x has %d steps, want %d", r.line, len(r.X), cfg.InputSteps)
		}
		for i, fv := range r.X {
			if len(fv) != domain.FeatureVectorLen {
				p.errorf("line %d: x[%d] has %d features, want %d", r.line, i, len(fv), domain.FeatureVectorLen)
			}
		}
		if len(r.Y) != 2 {
			p.errorf("line %d: y has %d components, want 2", r.line, len(r.Y))
		}
	}
	return p
}

func validateContent(rows []rawRow, expected []domain.WindowExample) *phase {
	p := &phase{name: "Phase 3: Content (rebuilt from feed)"}
	for i := range min(len(rows), len(expected)) {
		r, want := rows[i], expected[i]
		if r.Timestamp != want.Timestamp {
			p.errorf("line %d: timestamp %q, want %q", r.line, r.Timestamp, want.Timestamp)
		}
		if len(r.Y) == 2 && (!floatEq(r.Y[0], want.Y[0]) || !floatEq(r.Y[1], want.Y[1])) {
			p.errorf("line %d: y %v, want %v", r.line, r.Y, want.Y)
		}
		compareWindow(p, r, want)
	}
	return p
}

func compareWindow(p *phase, r rawRow, want domain.WindowExample) {
	for step := range min(len(r.X), len(want.X)) {
		got := r.X[step]
		for k := range min(len(got), domain.FeatureVectorLen) {
			if !floatEq(got[k], want.X[step][k]) {
				p.errorf("line %d: x[%d][%d] = %g, want %g", r.line, step, k, got[k], want.X[step][k])
				return
			}
		}
	}
}

func validateOrder(rows []rawRow) *phase {
	p := &phase{name: "Phase 4: Timestamp Order"}
	var prev time.Time
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			// Non RFC 3339 timestamps are carried through verbatim; order is not checkable.
			continue
		}
		if ts.Before(prev) {
			p.errorf("line %d: timestamp %s is before the previous row (%s)", r.line, r.Timestamp, prev.Format(time.RFC3339))
		}
		prev = ts
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
