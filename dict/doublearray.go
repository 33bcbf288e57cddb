// Package dict implements the double-array dictionary described in spec
// §4.D: a hiragana-reading keyed trie supporting exact and common-prefix
// lookup, backed by a compact base/check array pair (§9 "arena + index for
// trie nodes" applies here just as much as it does to the romaji package).
package dict

import "sort"

// Record is one (surface, score) pair stored under a reading. Lower score
// means higher display priority.
type Record struct {
	Surface string
	Score   int32
}

const rootState = int32(1)

// Dict is an immutable double-array trie built in one batch pass from a
// complete set of (reading, records) pairs. Keys are the raw UTF-8 bytes of
// the hiragana reading, so the "alphabet" is the full byte range, not just
// ASCII — unlike the romaji trie, readings are never re-keyed into another
// representation.
type Dict struct {
	base     []int32
	check    []int32
	terminal map[int32][]Record
}

// tempNode is the scratch trie used only during Build; it is discarded once
// the double array has been laid out.
type tempNode struct {
	children map[byte]*tempNode
	records  []Record
}

func newTempNode() *tempNode {
	return &tempNode{children: make(map[byte]*tempNode)}
}

// Build constructs a Dict from a set of readings to their records. It never
// mutates entries in place afterward: building a different set means
// calling Build again and swapping the result in.
func Build(entries map[string][]Record) *Dict {
	root := newTempNode()
	for reading, records := range entries {
		cur := root
		for i := 0; i < len(reading); i++ {
			c := reading[i]
			next, ok := cur.children[c]
			if !ok {
				next = newTempNode()
				cur.children[c] = next
			}
			cur = next
		}
		cur.records = append(cur.records, records...)
	}
	sortAllRecords(root)

	d := &Dict{
		base:     make([]int32, rootState+1),
		check:    make([]int32, rootState+1),
		terminal: make(map[int32][]Record),
	}
	d.placeNode(root, rootState)
	return d
}

func sortAllRecords(n *tempNode) {
	sortRecords(n.records)
	for _, c := range n.children {
		sortAllRecords(c)
	}
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Score < recs[j].Score })
}

// placeNode assigns state (already a valid array index, either rootState or
// a slot reserved by the parent) to n, recording its terminal records and
// recursively laying out its children behind a freshly chosen base.
func (d *Dict) placeNode(n *tempNode, state int32) {
	if len(n.records) > 0 {
		d.terminal[state] = n.records
	}
	if len(n.children) == 0 {
		return
	}

	codes := make([]byte, 0, len(n.children))
	for c := range n.children {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	base := d.findFreeBase(codes)
	d.ensure(base + 255)
	d.base[state] = base
	for _, c := range codes {
		slot := base + int32(c)
		d.check[slot] = state
	}
	for _, c := range codes {
		d.placeNode(n.children[c], base+int32(c))
	}
}

// findFreeBase returns the smallest base >= 1 such that base+c is free
// (check == 0, never yet claimed) for every code in codes.
func (d *Dict) findFreeBase(codes []byte) int32 {
	for base := int32(1); ; base++ {
		ok := true
		for _, c := range codes {
			slot := base + int32(c)
			if int(slot) < len(d.check) && d.check[slot] != 0 {
				ok = false
				break
			}
		}
		if ok {
			return base
		}
	}
}

func (d *Dict) ensure(size int32) {
	if int(size) < len(d.check) {
		return
	}
	grown := make([]int32, size+1)
	copy(grown, d.base)
	d.base = grown
	grown2 := make([]int32, size+1)
	copy(grown2, d.check)
	d.check = grown2
}

// walk follows path from the root, validating each transition with the
// classic double-array check: check[base[s]+c] must equal s.
func (d *Dict) walk(path []byte) (state int32, ok bool) {
	s := rootState
	for i := 0; i < len(path); i++ {
		c := path[i]
		if int(s) >= len(d.base) {
			return 0, false
		}
		slot := d.base[s] + int32(c)
		if slot < 0 || int(slot) >= len(d.check) || d.check[slot] != s {
			return 0, false
		}
		s = slot
	}
	return s, true
}

// Exact returns the records stored for reading exactly, already sorted
// ascending by score, or nil if reading has no entry.
func (d *Dict) Exact(reading string) []Record {
	s, ok := d.walk([]byte(reading))
	if !ok {
		return nil
	}
	return d.terminal[s]
}

// PrefixMatch is one result of CommonPrefix: a prefix of the query that
// itself has a dictionary entry, with that entry's records.
type PrefixMatch struct {
	Prefix  string
	Records []Record
}

// CommonPrefix returns every prefix of reading (including reading itself)
// that has a dictionary entry, ordered from shortest to longest. By
// construction Exact(reading)'s surfaces are always a subset of
// CommonPrefix(reading)'s surfaces, since reading is a prefix of itself
// (§8 dictionary consistency).
func (d *Dict) CommonPrefix(reading string) []PrefixMatch {
	var matches []PrefixMatch
	s := rootState
	bs := []byte(reading)
	for i := 0; i < len(bs); i++ {
		c := bs[i]
		if int(s) >= len(d.base) {
			break
		}
		slot := d.base[s] + int32(c)
		if slot < 0 || int(slot) >= len(d.check) || d.check[slot] != s {
			break
		}
		s = slot
		if recs, ok := d.terminal[s]; ok {
			matches = append(matches, PrefixMatch{Prefix: reading[:i+1], Records: recs})
		}
	}
	return matches
}

// Empty reports whether the dictionary holds no entries at all — the state
// a Dict is left in when load fails (§4.D "loading an invalid or missing
// file yields an empty dictionary").
func (d *Dict) Empty() bool {
	return d == nil || len(d.terminal) == 0
}

// NewEmpty returns a Dict with no entries, used whenever a load fails and
// the engine must continue without the dictionary.
func NewEmpty() *Dict {
	return &Dict{
		base:     make([]int32, rootState+1),
		check:    make([]int32, rootState+1),
		terminal: make(map[int32][]Record),
	}
}
