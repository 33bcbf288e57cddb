package learning

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/karukan-ime/karukan/errs"
)

// DefaultPath returns the learning TSV path under the XDG data home for
// app, e.g. ~/.local/share/karukan/learning.tsv (§6 persisted state).
func DefaultPath(app string) (string, error) {
	path, err := xdg.DataFile(filepath.Join(app, "learning.tsv"))
	if err != nil {
		return "", errs.New(errs.Learning, "learning.DefaultPath", err)
	}
	return path, nil
}

// Save writes the cache to path as TSV (reading, surface, last_used_unix,
// frequency), atomically via write-to-temp-then-rename, but only if the
// cache is dirty. A failed save leaves the dirty flag set so a later
// deactivate can retry (§7 propagation policy).
func (c *Cache) Save(path string) error {
	if !c.dirty {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.New(errs.Learning, "learning.Save", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.New(errs.Learning, "learning.Save", err)
	}

	w := bufio.NewWriter(f)
	writeErr := func() error {
		// Map iteration order is randomized per run; write in original
		// insertion order (seq) so re-Load reassigns seq identically and
		// rank()'s tie-break stays stable across a save/load cycle.
		type flat struct {
			reading string
			e       *Entry
		}
		rows := make([]flat, 0, c.Size())
		for reading, entries := range c.entries {
			for _, e := range entries {
				rows = append(rows, flat{reading, e})
			}
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].e.seq < rows[j].e.seq })

		for _, row := range rows {
			line := fmt.Sprintf("%s\t%s\t%d\t%d\n", row.reading, row.e.Surface, row.e.LastUsed.Unix(), row.e.Frequency)
			if _, err := w.WriteString(line); err != nil {
				return err
			}
		}
		return w.Flush()
	}()
	if writeErr != nil {
		f.Close()
		os.Remove(tmp)
		return errs.New(errs.Learning, "learning.Save", writeErr)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.New(errs.Learning, "learning.Save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.Learning, "learning.Save", err)
	}

	c.dirty = false
	return nil
}

// Load reads a TSV file written by Save into a new Cache bounded to
// maxEntries. Malformed lines are skipped; a missing file yields an empty,
// non-dirty cache rather than an error (§4.E persistence policy).
func Load(path string, maxEntries int) (*Cache, error) {
	c := New(maxEntries)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, errs.New(errs.Learning, "learning.Load", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 4 {
			continue
		}
		reading, surface := cols[0], cols[1]
		unixTime, err := strconv.ParseInt(cols[2], 10, 64)
		if err != nil {
			continue
		}
		freq, err := strconv.ParseInt(cols[3], 10, 64)
		if err != nil {
			continue
		}
		c.seq++
		c.entries[reading] = append(c.entries[reading], &Entry{
			Reading:   reading,
			Surface:   surface,
			LastUsed:  time.Unix(unixTime, 0),
			Frequency: freq,
			seq:       c.seq,
		})
	}
	if err := sc.Err(); err != nil {
		return c, errs.New(errs.Learning, "learning.Load", err)
	}

	c.evictIfNeeded()
	return c, nil
}
