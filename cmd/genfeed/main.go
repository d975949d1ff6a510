// Command genfeed writes a deterministic synthetic telemetry feed for local
// runs of the batch tools and the stream pipeline. The feed is a quiet solar
// wind interrupted by one storm: a shock raises speed and density, Bz turns
// southward, Kp climbs and Dst dips before recovering.
//
// Usage:
//
//	go run ./cmd/genfeed \
//	  -out ml/data/feed.json \
//	  -points 288 -storm-at 120 -seed 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
)

type options struct {
	points   int
	stormAt  int
	seed     uint64
	start    time.Time
	interval time.Duration
	gapRate  float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the feed JSON")
	points := flag.Int("points", 288, "number of telemetry points")
	stormAt := flag.Int("storm-at", 120, "index of the storm onset (negative disables the storm)")
	seed := flag.Uint64("seed", 1, "random seed")
	start := flag.String("start", "2024-05-10T00:00:00Z", "timestamp of the first point (RFC 3339)")
	interval := flag.Duration("interval", 5*time.Minute, "spacing between points")
	gapRate := flag.Float64("gap-rate", 0.02, "probability that a point omits a field group")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if *points < 0 || *interval <= 0 || *gapRate < 0 || *gapRate > 1 {
		return fmt.Errorf("-points, -interval and -gap-rate must be non-negative, positive and in [0,1]")
	}

	feed := generate(options{
		points:   *points,
		stormAt:  *stormAt,
		seed:     *seed,
		start:    startTime.UTC(),
		interval: *interval,
		gapRate:  *gapRate,
	})

	if err := writeJSON(*out, feed); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}
	log.Printf("wrote %d points to %s", len(feed.Points), *out)

	printStats(feed.Points)
	return nil
}

func generate(opts options) domain.Feed {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	points := make([]domain.TelemetryPoint, 0, opts.points)

	for i := range opts.points {
		s := stormPhase(i, opts.stormAt)

		speed := 380 + 320*s + rng.NormFloat64()*15
		density := 4 + 14*s*math.Exp(-3*s) + math.Abs(rng.NormFloat64())
		bx := rng.NormFloat64() * 3
		by := rng.NormFloat64()*3 + 4*s
		bz := -18*s + rng.NormFloat64()*2
		bt := math.Sqrt(bx*bx + by*by + bz*bz)
		ey := -speed * bz * 1e-3
		newell, epsilon := coupling(speed, by, bz)
		kp := clamp(1.3+7*s+rng.NormFloat64()*0.3, 0, 9)
		dst := -5 - 180*s + rng.NormFloat64()*4

		p := domain.TelemetryPoint{
			Timestamp:     opts.start.Add(time.Duration(i) * opts.interval).Format(time.RFC3339),
			SolarWind:     &domain.SolarWind{Speed: round(speed, 1), Density: round(density, 2)},
			MagneticField: &domain.MagneticField{X: round(bx, 2), Y: round(by, 2), Z: round(bz, 2), Bt: round(bt, 2)},
			ElectricField: &domain.ElectricField{Ey: round(ey, 3)},
			Coupling:      &domain.Coupling{Newell: round(newell, 0), Epsilon: round(epsilon, 0)},
			Indices:       &domain.Indices{Kp: round(kp, 2), Dst: round(dst, 0)},
		}
		dropGroup(rng, opts.gapRate, &p)
		points = append(points, p)
	}
	return domain.Feed{Points: points}
}

// stormPhase is 0 before onset, rises to 1 over an hour of 5-minute samples
// and decays over roughly half a day.
func stormPhase(i, onset int) float64 {
	if onset < 0 || i < onset {
		return 0
	}
	t := float64(i - onset)
	const rise, decay = 12.0, 144.0
	if t < rise {
		return t / rise
	}
	return math.Exp(-(t - rise) / decay * 3)
}

// coupling returns the Newell coupling function and an Akasofu epsilon proxy
// (in arbitrary units) from speed in km/s and By/Bz in nT.
func coupling(speed, by, bz float64) (newell, epsilon float64) {
	bT := math.Hypot(by, bz)
	clock := math.Atan2(by, bz)
	half := math.Abs(math.Sin(clock / 2))
	newell = math.Pow(speed, 4.0/3) * math.Pow(bT, 2.0/3) * math.Pow(half, 8.0/3)
	epsilon = speed * bT * bT * math.Pow(half, 4)
	return newell, epsilon
}

func dropGroup(rng *rand.Rand, rate float64, p *domain.TelemetryPoint) {
	if rng.Float64() >= rate {
		return
	}
	switch rng.IntN(5) {
	case 0:
		p.SolarWind = nil
	case 1:
		p.MagneticField = nil
	case 2:
		p.ElectricField = nil
	case 3:
		p.Coupling = nil
	default:
		p.Indices = nil
	}
}

func round(v float64, places int) *float64 {
	scale := math.Pow(10, float64(places))
	r := math.Round(v*scale) / scale
	return &r
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(points []domain.TelemetryPoint) {
	maxKp, minDst, maxSpeed := 0.0, 0.0, 0.0
	gaps := 0
	for _, p := range points {
		if p.SolarWind == nil || p.MagneticField == nil || p.ElectricField == nil || p.Coupling == nil || p.Indices == nil {
			gaps++
		}
		if p.Indices != nil {
			maxKp = math.Max(maxKp, *p.Indices.Kp)
			minDst = math.Min(minDst, *p.Indices.Dst)
		}
		if p.SolarWind != nil {
			maxSpeed = math.Max(maxSpeed, *p.SolarWind.Speed)
		}
	}

	fmt.Println("\n=== Feed stats ===")
	fmt.Printf("Points: %d (with a missing group: %d)\n", len(points), gaps)
	fmt.Printf("Max Kp: %.2f, min Dst: %.0f nT, max speed: %.1f km/s\n", maxKp, minDst, maxSpeed)
}
