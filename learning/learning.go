// Package learning implements the learning cache from spec §4.E: a
// recency- and frequency-weighted record of (reading, surface) commits,
// persisted as TSV and consulted ahead of the dictionaries and the model by
// the candidate merger.
package learning

import (
	"math"
	"sort"
	"strings"
	"time"
)

// recencyWeight and recencyHalfLife are the tuning knobs behind score: per
// §9 "learning score constants", these are implementation parameters, not
// part of the public Config surface, and tests only assert on ordering.
const (
	recencyWeight   = 10.0
	recencyHalfLife = 24 * time.Hour
)

// Entry is one stored (reading, surface) pair with its usage statistics.
type Entry struct {
	Reading   string
	Surface   string
	LastUsed  time.Time
	Frequency int64
	seq       uint64 // insertion order, breaks exact score ties
}

// Candidate is a scored lookup result.
type Candidate struct {
	Surface string
	Score   float64
}

// PrefixCandidate is one result of PrefixLookup.
type PrefixCandidate struct {
	Reading string
	Surface string
	Score   float64
}

// Cache is the in-memory learning cache. It is single-owner: all mutation
// happens on the engine's own thread (§5 concurrency note), so no locking
// is needed here.
type Cache struct {
	entries    map[string][]*Entry // reading -> entries, unsorted
	maxEntries int
	dirty      bool
	seq        uint64
	now        func() time.Time
}

// New returns an empty Cache bounded to maxEntries total entries.
func New(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string][]*Entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Record upserts (reading, surface): if the pair already exists its
// frequency is incremented and last_used refreshed; otherwise a new entry
// is created. Marks the cache dirty and evicts if maxEntries is exceeded.
func (c *Cache) Record(reading, surface string) {
	now := c.now()
	for _, e := range c.entries[reading] {
		if e.Surface == surface {
			e.Frequency++
			e.LastUsed = now
			c.dirty = true
			return
		}
	}
	c.seq++
	c.entries[reading] = append(c.entries[reading], &Entry{
		Reading:   reading,
		Surface:   surface,
		LastUsed:  now,
		Frequency: 1,
		seq:       c.seq,
	})
	c.dirty = true
	c.evictIfNeeded()
}

func (c *Cache) score(e *Entry) float64 {
	dt := c.now().Sub(e.LastUsed)
	if dt < 0 {
		dt = 0
	}
	recency := math.Exp(-dt.Hours() / recencyHalfLife.Hours())
	return recency*recencyWeight + math.Log(1+float64(e.Frequency))
}

// Lookup returns every surface recorded for reading exactly, sorted by
// score descending, ties broken by LastUsed descending.
func (c *Cache) Lookup(reading string) []Candidate {
	entries := c.entries[reading]
	if len(entries) == 0 {
		return nil
	}
	return c.rank(entries)
}

// PrefixLookup returns every stored (reading', surface) pair where reading
// is a prefix of reading', sorted the same way as Lookup.
func (c *Cache) PrefixLookup(reading string) []PrefixCandidate {
	var matched []*Entry
	for r, entries := range c.entries {
		if strings.HasPrefix(r, reading) {
			matched = append(matched, entries...)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	ranked := c.rankEntries(matched)
	out := make([]PrefixCandidate, len(ranked))
	for i, e := range ranked {
		out[i] = PrefixCandidate{Reading: e.Reading, Surface: e.Surface, Score: c.score(e)}
	}
	return out
}

// rankEntries sorts entries by score descending, ties broken by LastUsed
// descending and then insertion order, without losing track of which
// Entry each result came from.
func (c *Cache) rankEntries(entries []*Entry) []*Entry {
	out := append([]*Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool {
		si, sj := c.score(out[i]), c.score(out[j])
		if si != sj {
			return si > sj
		}
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

func (c *Cache) rank(entries []*Entry) []Candidate {
	ranked := c.rankEntries(entries)
	out := make([]Candidate, len(ranked))
	for i, e := range ranked {
		out[i] = Candidate{Surface: e.Surface, Score: c.score(e)}
	}
	return out
}

// Size returns the total number of entries across all readings.
func (c *Cache) Size() int {
	n := 0
	for _, es := range c.entries {
		n += len(es)
	}
	return n
}

// Dirty reports whether the cache has unsaved changes.
func (c *Cache) Dirty() bool { return c.dirty }

// evictIfNeeded removes the globally lowest-scored entries until the total
// size is back at maxEntries (§4.E eviction).
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	total := c.Size()
	if total <= c.maxEntries {
		return
	}

	type located struct {
		reading string
		e       *Entry
		score   float64
	}
	var all []located
	for r, es := range c.entries {
		for _, e := range es {
			all = append(all, located{reading: r, e: e, score: c.score(e)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score < all[j].score })

	toRemove := total - c.maxEntries
	for i := 0; i < toRemove && i < len(all); i++ {
		victim := all[i]
		es := c.entries[victim.reading]
		for idx, e := range es {
			if e == victim.e {
				c.entries[victim.reading] = append(es[:idx], es[idx+1:]...)
				break
			}
		}
		if len(c.entries[victim.reading]) == 0 {
			delete(c.entries, victim.reading)
		}
	}
}

