package library

import (
	"math/rand"

	"github.com/cwbudde/algo-loop/loop"
)

const (
	DefaultTempoMin = 1.0
	DefaultTempoMax = 500.0
)

// DefaultQueries returns one query per layer of a loop: drums without a key,
// then bass, melodic, fx, vocals and percussion in key. The melodic query sits
// at loop.DefaultKeyClip, but Select drops misses, so callers that label the
// export by position should use KeyClip on the selected descriptors.
func DefaultQueries(key loop.Key, tempoMin, tempoMax float64) []Query {
	if tempoMin <= 0 {
		tempoMin = DefaultTempoMin
	}
	if tempoMax <= 0 {
		tempoMax = DefaultTempoMax
	}
	q := func(inst loop.Instrument, keys ...loop.Key) Query {
		return Query{Instrument: inst, TempoMin: tempoMin, TempoMax: tempoMax, KeyRange: keys}
	}
	return []Query{
		q(loop.Drums, loop.KeyUndetermined),
		q(loop.Bass, key),
		q(loop.Melodic, key),
		q(loop.FX, key),
		q(loop.Vocals, key),
		q(loop.Percussion, key),
	}
}

// RandomKey picks one of the twelve pitch classes.
func RandomKey(rng *rand.Rand) loop.Key {
	return loop.Keys[rng.Intn(len(loop.Keys))]
}

// Select runs every query against lib and returns the hits in query order,
// plus the queries that found nothing.
func Select(lib Querier, queries []Query) ([]loop.Descriptor, []Query) {
	var (
		found  []loop.Descriptor
		missed []Query
	)
	for _, q := range queries {
		if d, ok := lib.Find(q); ok {
			found = append(found, d)
		} else {
			missed = append(missed, q)
		}
	}
	return found, missed
}

// KeyClip returns the position in found whose key should label a mix: the
// first melodic clip, else the first clip with a determined key, else -1.
func KeyClip(found []loop.Descriptor) int {
	for i, d := range found {
		if d.Instrument == loop.Melodic {
			return i
		}
	}
	for i, d := range found {
		if d.Key != loop.KeyUndetermined {
			return i
		}
	}
	return -1
}
