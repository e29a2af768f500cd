// Command genfixture writes a synthetic CSV shaped like the US-Accidents
// export, with controlled missingness, for exercising the preparer without
// the multi-gigabyte original.
//
// Usage:
//
//	go run ./cmd/genfixture -rows 5000 -seed 7 -missing 0.1 -out data/fixture.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

var header = []string{
	domain.ColID, domain.ColSeverity, domain.ColStartTime, domain.ColEndTime,
	domain.ColStartLat, domain.ColStartLng, domain.ColState, domain.ColWeatherCondition,
	domain.ColDay, domain.ColTrafficSignal, domain.ColJunction, domain.ColStop, domain.ColCrossing,
	domain.ColTemperature, domain.ColHumidity, domain.ColPressure, domain.ColVisibility, domain.ColWindSpeed,
}

type stateCenter struct {
	code     string
	lat, lng float64
	weight   int
}

// Weights roughly follow each state's share of the real dataset.
var states = []stateCenter{
	{"CA", 36.7, -119.4, 30},
	{"FL", 27.9, -81.7, 12},
	{"TX", 31.0, -99.0, 9},
	{"SC", 33.8, -80.9, 5},
	{"NY", 42.9, -75.5, 5},
	{"NC", 35.6, -79.4, 5},
	{"VA", 37.5, -78.9, 4},
	{"PA", 40.9, -77.8, 4},
	{"OR", 44.0, -120.6, 3},
	{"OH", 40.4, -82.8, 3},
}

var conditions = []string{
	"Fair", "Clear", "Mostly Cloudy", "Cloudy", "Partly Cloudy", "Overcast",
	"Light Rain", "Scattered Clouds", "Light Snow", "Fog", "Rain", "Haze", "Heavy Rain",
}

var (
	rangeStart = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)
)

type generator struct {
	rng     *rand.Rand
	missing float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rows := flag.Int("rows", 1000, "number of data rows")
	seed := flag.Uint64("seed", 42, "random seed")
	missing := flag.Float64("missing", 0.1, "base probability a weather cell is blank")
	out := flag.String("out", "", "output CSV path")
	flag.Parse()

	if *out == "" || *rows <= 0 || *missing < 0 || *missing > 1 {
		flag.Usage()
		return fmt.Errorf("-out is required, -rows must be positive and -missing in [0,1]")
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer f.Close()

	g := &generator{rng: rand.New(rand.NewPCG(*seed, *seed)), missing: *missing}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range *rows {
		if err := w.Write(g.row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}

	log.Printf("wrote %d rows to %s (seed %d, missing %.2f)", *rows, *out, *seed, *missing)
	return nil
}

func (g *generator) row(i int) []string {
	st := g.state()
	start := rangeStart.Add(time.Duration(g.rng.Int64N(int64(rangeEnd.Sub(rangeStart)))))
	start = start.Truncate(time.Second)
	end := start.Add(time.Duration(15+g.rng.IntN(345)) * time.Minute)

	return []string{
		"A-" + strconv.Itoa(i+1),
		strconv.Itoa(1 + g.rng.IntN(4)),
		g.startTime(start),
		g.endTime(end),
		g.coord(st.lat, 1.5),
		g.coord(st.lng, 1.5),
		st.code,
		g.blank(g.missing/4, conditions[g.rng.IntN(len(conditions))]),
		g.blank(0.005, strconv.Itoa((int(start.Weekday())+6)%7)),
		g.flag(0.15), g.flag(0.07), g.flag(0.03), g.flag(0.11),
		g.blank(g.missing/2, g.measure(20, 100, 1)),
		g.blank(g.missing/2, g.measure(10, 100, 0)),
		g.blank(g.missing/3, g.measure(28.5, 30.8, 2)),
		g.blank(g.missing/2, g.measure(0, 10, 1)),
		g.blank(g.missing, g.measure(0, 30, 1)),
	}
}

func (g *generator) state() stateCenter {
	total := 0
	for _, s := range states {
		total += s.weight
	}
	n := g.rng.IntN(total)
	for _, s := range states {
		if n < s.weight {
			return s
		}
		n -= s.weight
	}
	return states[0]
}

// startTime mixes plain, fractional-second and occasionally malformed values.
func (g *generator) startTime(t time.Time) string {
	switch p := g.rng.Float64(); {
	case p < 0.005:
		return t.Format("01/02/2006 15:04")
	case p < 0.2:
		return t.Format("2006-01-02 15:04:05") + ".000000000"
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

func (g *generator) endTime(t time.Time) string {
	switch p := g.rng.Float64(); {
	case p < 0.002:
		return ""
	case p < 0.3:
		return t.Format(time.RFC3339)
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

func (g *generator) coord(center, spread float64) string {
	return strconv.FormatFloat(center+(g.rng.Float64()*2-1)*spread, 'f', 6, 64)
}

func (g *generator) measure(lo, hi float64, prec int) string {
	return strconv.FormatFloat(lo+g.rng.Float64()*(hi-lo), 'f', prec, 64)
}

func (g *generator) flag(p float64) string {
	if g.rng.Float64() < p {
		return "True"
	}
	return "False"
}

func (g *generator) blank(p float64, v string) string {
	if g.rng.Float64() < p {
		return ""
	}
	return v
}
