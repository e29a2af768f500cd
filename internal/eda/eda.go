// Package eda computes the exploratory summaries that the chart and heatmap
// exporters render. Every function is pure and reads records only.
package eda

import (
	"cmp"
	"database/sql"
	"math/rand/v2"
	"slices"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// DefaultTopCategories is how many weather conditions the bar chart shows.
const DefaultTopCategories = 10

// USCenter is the map centre used when a hotspot sample is empty.
var USCenter = LatLng{Lat: 39.8283, Lng: -98.5795}

// Float selects a numeric field from a record.
type Float func(r *domain.AccidentRecord) sql.Null[float64]

// Field accessors for ScatterPoints.
var (
	Temperature Float = func(r *domain.AccidentRecord) sql.Null[float64] { return r.Temperature }
	Visibility  Float = func(r *domain.AccidentRecord) sql.Null[float64] { return r.Visibility }
	Severity    Float = func(r *domain.AccidentRecord) sql.Null[float64] {
		return sql.Null[float64]{V: float64(r.Severity.V), Valid: r.Severity.Valid}
	}
)

// HourCounts counts accidents per hour of day. Rows without an Hour are skipped.
func HourCounts(records []domain.AccidentRecord) [24]int {
	var counts [24]int
	for i := range records {
		if h := records[i].Hour; h.Valid && h.V >= 0 && h.V < 24 {
			counts[h.V]++
		}
	}
	return counts
}

// DayNameCounts counts accidents per day name, Monday first.
func DayNameCounts(records []domain.AccidentRecord) [7]int {
	var counts [7]int
	for i := range records {
		if d := records[i].Day; d.Valid && records[i].DayName.Valid {
			counts[d.V]++
		}
	}
	return counts
}

// CategoryCount is one bar of a value-count chart.
type CategoryCount struct {
	Value string
	Count int
}

// TopCategories counts the distinct values of a text field and returns the n
// most frequent, descending. Ties keep first-seen order; missing values are
// not counted.
func TopCategories(records []domain.AccidentRecord, field func(r *domain.AccidentRecord) sql.Null[string], n int) []CategoryCount {
	index := make(map[string]int)
	var counts []CategoryCount
	for i := range records {
		v := field(&records[i])
		if !v.Valid {
			continue
		}
		j, ok := index[v.V]
		if !ok {
			j = len(counts)
			index[v.V] = j
			counts = append(counts, CategoryCount{Value: v.V})
		}
		counts[j].Count++
	}

	slices.SortStableFunc(counts, func(a, b CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// WeatherConditions selects Weather_Condition for TopCategories.
func WeatherConditions(r *domain.AccidentRecord) sql.Null[string] { return r.WeatherCondition }

// Point is one scatter-plot mark.
type Point struct {
	X, Y float64
}

// ScatterPoints pairs x and y for every record where both are present.
func ScatterPoints(records []domain.AccidentRecord, x, y Float) []Point {
	points := make([]Point, 0, len(records))
	for i := range records {
		xv, yv := x(&records[i]), y(&records[i])
		if xv.Valid && yv.Valid {
			points = append(points, Point{X: xv.V, Y: yv.V})
		}
	}
	return points
}

// FeatureSeverity holds, for one severity level, how many accidents happened
// without and with a road feature.
type FeatureSeverity struct {
	Severity int
	Without  int
	With     int
}

// SeverityByFeature groups accidents by severity and by whether the feature
// was present. Rows missing either value are skipped. Levels are ascending.
func SeverityByFeature(records []domain.AccidentRecord, feature domain.FeatureField) []FeatureSeverity {
	bySeverity := make(map[int]*FeatureSeverity)
	for i := range records {
		r := &records[i]
		f := feature.Field(r)
		if !r.Severity.Valid || !f.Valid {
			continue
		}
		fs, ok := bySeverity[r.Severity.V]
		if !ok {
			fs = &FeatureSeverity{Severity: r.Severity.V}
			bySeverity[r.Severity.V] = fs
		}
		if f.V {
			fs.With++
		} else {
			fs.Without++
		}
	}

	out := make([]FeatureSeverity, 0, len(bySeverity))
	for _, fs := range bySeverity {
		out = append(out, *fs)
	}
	slices.SortFunc(out, func(a, b FeatureSeverity) int { return cmp.Compare(a.Severity, b.Severity) })
	return out
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Hotspot is the heatmap input: sampled points and the map centre.
type Hotspot struct {
	State     string
	Points    []LatLng
	Center    LatLng
	Available int // rows in the state with both coordinates
}

// HotspotSample picks up to n accidents in state that have both coordinates,
// without replacement, deterministically for a seed. When fewer than n are
// available all of them are used. The centre is the mean of the sample, or
// USCenter when the sample is empty.
func HotspotSample(records []domain.AccidentRecord, state string, n int, seed uint64) Hotspot {
	var candidates []LatLng
	for i := range records {
		r := &records[i]
		if !r.State.Valid || r.State.V != state || !r.StartLat.Valid || !r.StartLng.Valid {
			continue
		}
		candidates = append(candidates, LatLng{Lat: r.StartLat.V, Lng: r.StartLng.V})
	}

	h := Hotspot{State: state, Available: len(candidates), Center: USCenter}
	if len(candidates) == 0 || n <= 0 {
		return h
	}

	if len(candidates) > n {
		rng := rand.New(rand.NewPCG(seed, seed))
		// Partial Fisher-Yates: the first n slots end up a uniform sample.
		for i := range n {
			j := i + rng.IntN(len(candidates)-i)
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
		candidates = candidates[:n]
	}
	h.Points = candidates

	var lat, lng float64
	for _, p := range candidates {
		lat += p.Lat
		lng += p.Lng
	}
	h.Center = LatLng{Lat: lat / float64(len(candidates)), Lng: lng / float64(len(candidates))}
	return h
}
