package ml

import (
	"sort"
	"time"
)

// TaskPerformance is the performance series of one task and the group it is
// plotted in.
type TaskPerformance struct {
	Task        string
	Group       string
	Performance []Performance
}

// Point is a score at an offset from the start of its series.
type Point struct {
	Offset time.Duration
	Score  float64
}

type Curve struct {
	Task   string
	Points []Point
}

// Aggregate groups the series by Group. Each curve starts at offset 0: the
// earliest timestamp of its own series. Empty series are dropped.
func Aggregate(results []TaskPerformance) map[string][]Curve {
	out := make(map[string][]Curve)
	for _, r := range results {
		if len(r.Performance) == 0 {
			continue
		}
		first := r.Performance[0].Timestamp
		for _, p := range r.Performance[1:] {
			if p.Timestamp.Before(first) {
				first = p.Timestamp
			}
		}
		points := make([]Point, len(r.Performance))
		for i, p := range r.Performance {
			points[i] = Point{Offset: p.Timestamp.Sub(first), Score: p.Score}
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].Offset < points[j].Offset })
		out[r.Group] = append(out[r.Group], Curve{Task: r.Task, Points: points})
	}
	return out
}

// Resample returns the curve's score every step from 0 to its last point,
// carrying the last known score forward.
func (c Curve) Resample(step time.Duration) []Point {
	if len(c.Points) == 0 || step <= 0 {
		return nil
	}
	last := c.Points[len(c.Points)-1].Offset
	var out []Point
	j := 0
	for at := time.Duration(0); at <= last; at += step {
		for j+1 < len(c.Points) && c.Points[j+1].Offset <= at {
			j++
		}
		out = append(out, Point{Offset: at, Score: c.Points[j].Score})
	}
	return out
}
