// Package library answers sample-library queries from a read-only JSON catalog
// of clip descriptors.
package library

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cwbudde/algo-loop/loop"
)

// Query selects clips of one instrument class within an inclusive tempo range
// whose key is in KeyRange. An empty KeyRange accepts any key.
type Query struct {
	Instrument loop.Instrument `json:"instrument_type"`
	TempoMin   float64         `json:"tempo_min"`
	TempoMax   float64         `json:"tempo_max"`
	KeyRange   []loop.Key      `json:"key_range"`
}

// Matches reports whether d satisfies q.
func (q Query) Matches(d loop.Descriptor) bool {
	if d.Instrument != q.Instrument {
		return false
	}
	if d.Tempo < q.TempoMin || d.Tempo > q.TempoMax {
		return false
	}
	if len(q.KeyRange) == 0 {
		return true
	}
	for _, k := range q.KeyRange {
		if d.Key == k {
			return true
		}
	}
	return false
}

// Querier returns at most one descriptor per query; ok is false when nothing
// qualifies.
type Querier interface {
	Find(q Query) (d loop.Descriptor, ok bool)
}

// File is the JSON schema of a catalog.
type File struct {
	AudioFiles []loop.Descriptor `json:"audiofiles"`
}

// Catalog is an in-memory set of descriptors. Find picks uniformly at random
// among the matches and is safe for concurrent use.
type Catalog struct {
	entries []loop.Descriptor

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a catalog over entries, normalizing their enum fields.
func New(entries []loop.Descriptor, seed int64) *Catalog {
	c := &Catalog{
		entries: make([]loop.Descriptor, len(entries)),
		rng:     rand.New(rand.NewSource(seed)),
	}
	for i, d := range entries {
		c.entries[i] = d.Normalize()
	}
	return c
}

// LoadJSON reads a catalog file. Relative audio paths resolve against the
// catalog's directory.
func LoadJSON(path string, seed int64) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i := range f.AudioFiles {
		d := &f.AudioFiles[i]
		if d.AbsolutePath == "" {
			return nil, fmt.Errorf("audiofiles[%d]: absolute_path is required", i)
		}
		if d.Tempo < 0 {
			return nil, fmt.Errorf("audiofiles[%d].tempo must be >= 0", i)
		}
		if !filepath.IsAbs(d.AbsolutePath) {
			d.AbsolutePath = filepath.Clean(filepath.Join(base, d.AbsolutePath))
			d.DirectoryPath = ""
		}
	}
	return New(f.AudioFiles, seed), nil
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Matches returns every descriptor satisfying q, in catalog order.
func (c *Catalog) Matches(q Query) []loop.Descriptor {
	var out []loop.Descriptor
	for _, d := range c.entries {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// Find returns one random match for q.
func (c *Catalog) Find(q Query) (loop.Descriptor, bool) {
	m := c.Matches(q)
	if len(m) == 0 {
		return loop.Descriptor{}, false
	}
	c.mu.Lock()
	i := c.rng.Intn(len(m))
	c.mu.Unlock()
	return m[i], true
}

// CountByInstrument counts descriptors per instrument class; every class is present.
func (c *Catalog) CountByInstrument() map[loop.Instrument]int {
	out := make(map[loop.Instrument]int, len(loop.Instruments))
	for _, inst := range loop.Instruments {
		out[inst] = 0
	}
	for _, d := range c.entries {
		out[d.Instrument]++
	}
	return out
}

// CountByKey counts descriptors per key; only keys that occur are present.
func (c *Catalog) CountByKey() map[loop.Key]int {
	out := make(map[loop.Key]int)
	for _, d := range c.entries {
		out[d.Key]++
	}
	return out
}

// SortedKeys returns the keys of counts in pitch-class order, undetermined last.
func SortedKeys(counts map[loop.Key]int) []loop.Key {
	order := make(map[loop.Key]int, len(loop.Keys))
	for i, k := range loop.Keys {
		order[k] = i
	}
	keys := make([]loop.Key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := order[keys[i]]
		oj, jok := order[keys[j]]
		if iok != jok {
			return iok
		}
		if !iok {
			return keys[i] < keys[j]
		}
		return oi < oj
	})
	return keys
}
