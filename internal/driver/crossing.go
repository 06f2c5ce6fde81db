package driver

import (
	"context"
	"math"
	"sort"

	"github.com/okian/animpath/internal/domain/dedupe"
	"github.com/okian/animpath/internal/domain/model"
)

// maxLegs bounds how many laps a single tick may report.
const maxLegs = 64

// Crossing is a node passed during playback. Lap counts whole passes over
// the path; with PingPong each direction is its own lap.
type Crossing struct {
	Node      int
	Timestamp float64
	Lap       int64
}

// CrossingHandler is called after a tick for every node it crossed.
type CrossingHandler func(ctx context.Context, c Crossing)

type pass struct {
	Crossing
	at float64
}

// crossings lists the nodes passed when the raw time ratio moves from
// (exclusive) to (inclusive), in travel order.
func crossings(wrap model.WrapMode, ts []float64, from, to float64) []Crossing {
	if from == to {
		return nil
	}
	first := int64(math.Floor(math.Min(from, to)))
	last := int64(math.Floor(math.Max(from, to)))
	if wrap == model.Clamp {
		first, last = 0, 0
	}
	if last-first > maxLegs {
		first = last - maxLegs
	}

	var out []pass
	for leg := first; leg <= last; leg++ {
		for i, t := range ts {
			at := float64(leg) + t
			if wrap == model.PingPong && leg%2 != 0 {
				at = float64(leg) + 1 - t
			}
			// a PingPong turn is one visit, owned by the leg it ends
			if wrap == model.PingPong && at == float64(leg) {
				continue
			}
			if from < to && (at <= from || at > to) {
				continue
			}
			if from > to && (at >= from || at < to) {
				continue
			}
			out = append(out, pass{Crossing: Crossing{Node: i, Timestamp: t, Lap: leg}, at: at})
		}
	}

	forward := from < to
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.at != b.at {
			return (a.at < b.at) == forward
		}
		return (a.Lap < b.Lap) == forward
	})
	res := make([]Crossing, len(out))
	for i, p := range out {
		res[i] = p.Crossing
	}
	return res
}

func (d *Driver) cross(ctx context.Context, wrap model.WrapMode, ts []float64, from, to float64) []Crossing {
	var fired []Crossing
	for _, c := range crossings(wrap, ts, from, to) {
		if d.tracker.SeenAndRecord(ctx, dedupe.Crossing{Lap: uint64(c.Lap), Node: c.Node}) {
			continue
		}
		fired = append(fired, c)
	}
	return fired
}
