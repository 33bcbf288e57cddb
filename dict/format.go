package dict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/karukan-ime/karukan/errs"
)

// Binary layout (§6 "Dictionary binary format"): magic bytes, format
// version, the double-array base/check pair, a surface-string arena, and a
// payload record arena — all integers little-endian.
var magic = [4]byte{'K', 'R', 'K', 'D'}

const formatVersion = uint32(1)

// Save writes d to path in the karukan dictionary binary format, replacing
// any existing file atomically (write to temp, then rename).
func Save(d *Dict, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.New(errs.Dict, "dict.Save", err)
	}
	if err := writeDict(f, d); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.New(errs.Dict, "dict.Save", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.New(errs.Dict, "dict.Save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.Dict, "dict.Save", err)
	}
	return nil
}

func writeDict(w io.Writer, d *Dict) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return err
	}

	numStates := uint32(len(d.base))
	if err := binary.Write(bw, binary.LittleEndian, numStates); err != nil {
		return err
	}
	for i := 0; i < len(d.base); i++ {
		if err := binary.Write(bw, binary.LittleEndian, d.base[i]); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, d.check[i]); err != nil {
			return err
		}
	}

	// Surface-string arena: every distinct surface written once, referenced
	// by index from the payload records below.
	surfaceIndex := make(map[string]uint32)
	var surfaces []string
	intern := func(s string) uint32 {
		if idx, ok := surfaceIndex[s]; ok {
			return idx
		}
		idx := uint32(len(surfaces))
		surfaces = append(surfaces, s)
		surfaceIndex[s] = idx
		return idx
	}

	type rawRecord struct {
		state   int32
		surface uint32
		score   int32
	}
	var records []rawRecord
	for state, recs := range d.terminal {
		for _, r := range recs {
			records = append(records, rawRecord{state: state, surface: intern(r.Surface), score: r.Score})
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(surfaces))); err != nil {
		return err
	}
	for _, s := range surfaces {
		b := []byte(s)
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(b))); err != nil {
			return err
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(records))); err != nil {
		return err
	}
	for _, r := range records {
		if err := binary.Write(bw, binary.LittleEndian, r.state); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, r.surface); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, r.score); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load reads a karukan dictionary binary file. Per §4.D, a missing or
// invalid file is not a hard failure: Load returns an empty Dict alongside
// the error so the engine can continue without it.
func Load(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return NewEmpty(), errs.New(errs.Dict, "dict.Load", err)
	}
	defer f.Close()

	d, err := readDict(f)
	if err != nil {
		return NewEmpty(), errs.New(errs.Dict, "dict.Load", err)
	}
	return d, nil
}

func readDict(r io.Reader) (*Dict, error) {
	br := bufio.NewReader(r)

	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("bad magic %q", gotMagic[:])
	}

	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", version)
	}

	var numStates uint32
	if err := binary.Read(br, binary.LittleEndian, &numStates); err != nil {
		return nil, fmt.Errorf("reading state count: %w", err)
	}
	// Guard against a corrupt length field forcing an unreasonable
	// allocation before the read itself has a chance to fail.
	const maxStates = 64 << 20
	if numStates > maxStates {
		return nil, fmt.Errorf("state count %d exceeds sanity limit", numStates)
	}

	base := make([]int32, numStates)
	check := make([]int32, numStates)
	for i := uint32(0); i < numStates; i++ {
		if err := binary.Read(br, binary.LittleEndian, &base[i]); err != nil {
			return nil, fmt.Errorf("reading base[%d]: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &check[i]); err != nil {
			return nil, fmt.Errorf("reading check[%d]: %w", i, err)
		}
	}

	var numSurfaces uint32
	if err := binary.Read(br, binary.LittleEndian, &numSurfaces); err != nil {
		return nil, fmt.Errorf("reading surface count: %w", err)
	}
	const maxSurfaces = 16 << 20
	if numSurfaces > maxSurfaces {
		return nil, fmt.Errorf("surface count %d exceeds sanity limit", numSurfaces)
	}
	surfaces := make([]string, numSurfaces)
	for i := uint32(0); i < numSurfaces; i++ {
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("reading surface %d length: %w", i, err)
		}
		const maxSurfaceLen = 4096
		if n > maxSurfaceLen {
			return nil, fmt.Errorf("surface %d length %d exceeds sanity limit", i, n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("reading surface %d: %w", i, err)
		}
		surfaces[i] = string(buf)
	}

	var numRecords uint32
	if err := binary.Read(br, binary.LittleEndian, &numRecords); err != nil {
		return nil, fmt.Errorf("reading record count: %w", err)
	}
	const maxRecords = 64 << 20
	if numRecords > maxRecords {
		return nil, fmt.Errorf("record count %d exceeds sanity limit", numRecords)
	}

	terminal := make(map[int32][]Record)
	for i := uint32(0); i < numRecords; i++ {
		var state int32
		var surfaceIdx uint32
		var score int32
		if err := binary.Read(br, binary.LittleEndian, &state); err != nil {
			return nil, fmt.Errorf("reading record %d state: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &surfaceIdx); err != nil {
			return nil, fmt.Errorf("reading record %d surface index: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &score); err != nil {
			return nil, fmt.Errorf("reading record %d score: %w", i, err)
		}
		if surfaceIdx >= uint32(len(surfaces)) {
			return nil, fmt.Errorf("record %d references out-of-range surface %d", i, surfaceIdx)
		}
		terminal[state] = append(terminal[state], Record{Surface: surfaces[surfaceIdx], Score: score})
	}
	for _, recs := range terminal {
		sortRecords(recs)
	}

	return &Dict{base: base, check: check, terminal: terminal}, nil
}
