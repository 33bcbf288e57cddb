// Package candidate implements the merge pipeline of spec §4.G: given a
// hiragana reading (and optional left context, consumed upstream by the
// neural package), produce one ordered, deduplicated candidate list drawn
// from up to five heterogeneous sources.
//
// The fan-out-then-merge shape is modeled on the teacher's
// `agents/coordination/orchestrator.go`: `GenerateActions` routes one
// inbound event to however many of several subsystems are relevant,
// tolerates a failing subsystem by continuing with whatever the others
// produced, and merges the partial results into one ordered outcome — the
// same shape §4.G calls for ("a failed backend... the merger treats... as
// producing zero candidates").
package candidate

import (
	"github.com/karukan-ime/karukan/dict"
	"github.com/karukan-ime/karukan/kana"
	"github.com/karukan-ime/karukan/learning"
	"github.com/karukan-ime/karukan/neural"
)

// Source tags which of the merge's inputs a Candidate came from (§3).
type Source int

const (
	SourceLearning Source = iota
	SourceUser
	SourceModel
	SourceSystem
	SourceFallback
)

// Annotation returns the glyph the host displays next to a candidate of
// this source (§4.G).
func (s Source) Annotation() string {
	switch s {
	case SourceLearning:
		return "📝"
	case SourceUser:
		return "👤"
	case SourceModel:
		return "🤖"
	case SourceSystem:
		return "📚"
	default:
		return ""
	}
}

// Candidate is one entry in a merged list.
type Candidate struct {
	Surface string
	Reading string
	Source  Source
	Score   float64
}

// PageSize is the fixed candidate-panel page size (§3 CandidateList).
const PageSize = 9

// List is an ordered candidate list with a cursor, paginated at PageSize.
// The cursor addresses the whole list, not just the current page; Page
// derives the page-local view.
type List struct {
	Items  []Candidate
	cursor int
}

// Cursor returns the current absolute cursor index into Items.
func (l *List) Cursor() int { return l.cursor }

// SetCursor clamps pos into [0, len(Items)-1] (or 0 for an empty list).
func (l *List) SetCursor(pos int) {
	if len(l.Items) == 0 {
		l.cursor = 0
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= len(l.Items) {
		pos = len(l.Items) - 1
	}
	l.cursor = pos
}

// Advance moves the cursor forward by one, wrapping to index 0 at the end
// of the whole list (SPEC_FULL.md's resolved paging-wraparound question —
// spec §4.H says Space "wraps at end of page, loads next page"; karukan
// treats running off the final page as wrapping to page 0).
func (l *List) Advance() {
	if len(l.Items) == 0 {
		return
	}
	l.cursor = (l.cursor + 1) % len(l.Items)
}

// Retreat moves the cursor back by one, wrapping to the last item.
func (l *List) Retreat() {
	if len(l.Items) == 0 {
		return
	}
	l.cursor = (l.cursor - 1 + len(l.Items)) % len(l.Items)
}

// Page returns the page-local slice of Items containing the cursor, and
// the cursor's index within that slice.
func (l *List) Page() (page []Candidate, localCursor int) {
	if len(l.Items) == 0 {
		return nil, 0
	}
	start := (l.cursor / PageSize) * PageSize
	end := start + PageSize
	if end > len(l.Items) {
		end = len(l.Items)
	}
	return l.Items[start:end], l.cursor - start
}

// Current returns the candidate under the cursor, or the zero value and
// false if the list is empty.
func (l *List) Current() (Candidate, bool) {
	if len(l.Items) == 0 {
		return Candidate{}, false
	}
	return l.Items[l.cursor], true
}

// Select returns the candidate at page-local index i on the page currently
// containing the cursor (§4.H "commit page-local index d-1"), or false if
// out of range.
func (l *List) Select(i int) (Candidate, bool) {
	page, _ := l.Page()
	if i < 0 || i >= len(page) {
		return Candidate{}, false
	}
	return page[i], true
}

// Sources bundles the merge's optional inputs; a nil field is treated as
// "this source produced nothing" rather than an error (§7 propagation
// policy: missing dictionary behaves as empty, failed model call yields
// zero candidates).
type Sources struct {
	Learning     *learning.Cache
	UserDict     *dict.Dict
	SystemDict   *dict.Dict
	ModelResults []neural.Result // already-fetched backend output, or nil
}

// Merge builds the full Conversion-panel candidate list for reading,
// capped to numCandidates (§4.G steps 1, 3-6; step 2 — learning prefix —
// is intentionally excluded here and handled by Suggest, since it is
// "auto-suggest only" during Composing, not part of the conversion list).
func Merge(reading string, src Sources, numCandidates int) *List {
	var items []Candidate
	seen := make(map[string]struct{})

	add := func(c Candidate) {
		if _, dup := seen[c.Surface]; dup {
			return
		}
		seen[c.Surface] = struct{}{}
		items = append(items, c)
	}

	if src.Learning != nil {
		for i, lc := range src.Learning.Lookup(reading) {
			if i >= 3 {
				break
			}
			add(Candidate{Surface: lc.Surface, Reading: reading, Source: SourceLearning, Score: lc.Score})
		}
	}

	if src.UserDict != nil {
		for _, r := range src.UserDict.Exact(reading) {
			add(Candidate{Surface: r.Surface, Reading: reading, Source: SourceUser, Score: float64(r.Score)})
		}
	}

	for _, m := range src.ModelResults {
		add(Candidate{Surface: m.Decoded, Reading: reading, Source: SourceModel, Score: m.CumulativeLogProb})
	}

	if src.SystemDict != nil {
		for _, r := range src.SystemDict.Exact(reading) {
			add(Candidate{Surface: r.Surface, Reading: reading, Source: SourceSystem, Score: float64(r.Score)})
		}
	}

	add(Candidate{Surface: reading, Reading: reading, Source: SourceFallback})
	add(Candidate{Surface: kana.ToKatakana(reading), Reading: reading, Source: SourceFallback})

	if numCandidates > 0 && len(items) > numCandidates {
		items = items[:numCandidates]
	}
	return &List{Items: items}
}

// Suggest builds the up-to-3-item auto-suggest list shown while Composing
// (§4.G step 2, §4.H "auto-suggest via learning prefix"): learning-cache
// prefix matches only, no dictionaries or model involved since the reading
// is still partial and would be wasteful to send to a neural backend on
// every keystroke.
func Suggest(partialReading string, cache *learning.Cache) *List {
	if cache == nil {
		return &List{}
	}
	var items []Candidate
	seen := make(map[string]struct{})
	for _, pc := range cache.PrefixLookup(partialReading) {
		if len(items) >= 3 {
			break
		}
		if _, dup := seen[pc.Surface]; dup {
			continue
		}
		seen[pc.Surface] = struct{}{}
		items = append(items, Candidate{Surface: pc.Surface, Reading: pc.Reading, Source: SourceLearning, Score: pc.Score})
	}
	return &List{Items: items}
}
