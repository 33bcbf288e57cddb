package dict

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/karukan-ime/karukan/errs"
)

// defaultUserScore is assigned to a Mozc-TSV entry whose comment column
// carries no "freq:" hint (see ParseScore): user dictionaries carry no
// required numeric weight, and the merger (§4.G) ranks the user-dictionary
// source ahead of the system dictionary regardless of score, so the exact
// value only matters for ordering within one reading.
const defaultUserScore = int32(0)

// LooksLikeMozcTSV inspects the first non-empty line of data that is not a
// "#" comment and reports whether it looks like the tab-separated user
// dictionary form rather than the binary double-array format (§4.D
// "auto-detected by inspecting the first non-empty line for TAB vs. binary
// magic").
func LooksLikeMozcTSV(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Contains(line, "\t") && !strings.HasPrefix(line, string(magic[:]))
	}
	return false
}

// LoadMozcTSV parses a Mozc-style user dictionary: one entry per line,
// columns reading\tsurface\tpart_of_speech\tcomment, with "#"-prefixed
// comment lines and blank lines ignored. Malformed lines are skipped.
func LoadMozcTSV(path string) (map[string][]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.Dict, "dict.LoadMozcTSV", err)
	}
	defer f.Close()

	entries := make(map[string][]Record)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			continue
		}
		reading, surface := cols[0], cols[1]
		if reading == "" || surface == "" {
			continue
		}
		score := defaultUserScore
		if len(cols) >= 4 {
			if parsed := ParseScore(cols[3]); parsed != 0 {
				score = parsed
			}
		}
		entries[reading] = append(entries[reading], Record{Surface: surface, Score: score})
	}
	if err := sc.Err(); err != nil {
		return entries, errs.New(errs.Dict, "dict.LoadMozcTSV", err)
	}
	return entries, nil
}

// LoadOrDetect reads path and parses it either as Mozc-TSV or as the binary
// double-array format, based on LooksLikeMozcTSV. It's used for files in a
// user dictionary directory, which may be either form.
func LoadOrDetect(path string) (map[string][]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.Dict, "dict.LoadOrDetect", err)
	}
	if LooksLikeMozcTSV(data) {
		return LoadMozcTSV(path)
	}
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	entries := make(map[string][]Record)
	for state, recs := range d.terminal {
		reading := readingOf(d, state)
		entries[reading] = append(entries[reading], recs...)
	}
	return entries, nil
}

// readingOf reconstructs the byte key that reaches state by scanning check
// for a parent with a matching base offset. This only runs when converting
// a loaded binary user-dict file back into mergeable entries, which is rare
// enough that the O(states) scan per terminal is acceptable.
func readingOf(d *Dict, state int32) string {
	var rev []byte
	s := state
	for s != rootState {
		parent, code, ok := findParent(d, s)
		if !ok {
			break
		}
		rev = append(rev, code)
		s = parent
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return string(rev)
}

func findParent(d *Dict, state int32) (parent int32, code byte, ok bool) {
	p := d.check[state]
	if p == 0 {
		return 0, 0, false
	}
	return p, byte(state - d.base[p]), true
}

// LoadUserDictDir loads every file directly under dir (Mozc-TSV or binary,
// auto-detected), merging them into one entries map. Files are processed in
// sorted-by-name order and earlier files win: a (reading, surface) pair
// already present from an earlier file is a no-op when seen again in a
// later file (§3/§6 "files sorted by name with earlier files winning").
// A missing directory is not an error — it simply contributes nothing.
func LoadUserDictDir(dir string) (map[string][]Record, error) {
	entries := make(map[string][]Record)
	names, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return entries, errs.New(errs.Dict, "dict.LoadUserDictDir", err)
	}

	var files []string
	for _, n := range names {
		if n.IsDir() {
			continue
		}
		files = append(files, n.Name())
	}
	sort.Strings(files)

	seen := make(map[string]map[string]bool) // reading -> set of surfaces already present
	for _, name := range files {
		fileEntries, err := LoadOrDetect(filepath.Join(dir, name))
		if err != nil {
			continue // a single bad file degrades gracefully, per §7
		}
		for reading, recs := range fileEntries {
			if seen[reading] == nil {
				seen[reading] = make(map[string]bool)
			}
			for _, r := range recs {
				if seen[reading][r.Surface] {
					continue
				}
				seen[reading][r.Surface] = true
				entries[reading] = append(entries[reading], r)
			}
		}
	}
	return entries, nil
}

// ParseScore parses an optional numeric score hint out of a Mozc-TSV
// comment column (e.g. "freq:120"), used by LoadMozcTSV to override
// defaultUserScore; it returns 0 if none is present.
func ParseScore(comment string) int32 {
	const prefix = "freq:"
	idx := strings.Index(comment, prefix)
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(comment[idx+len(prefix):]))
	if err != nil {
		return 0
	}
	return int32(n)
}
