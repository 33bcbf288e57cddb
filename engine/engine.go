// Package engine implements the top-level IME state machine of spec §4.H:
// Empty/Composing/Conversion states, the Hiragana/Katakana/Alphanumeric/
// LiveConversion mode dimension, key dispatch, and the four output slots
// (preedit, commit, aux, candidates) the host polls after each key event.
//
// The single entry point routing one inbound event to however many
// subsystems need to see it (romaji FSM, buffer, candidate merger, neural
// backend, learning cache) is modeled on the teacher's
// `agents/coordination/orchestrator.go`: one `GenerateActions` call fans
// out to whichever subsystems the input requires and merges their partial
// results, tolerating any one of them failing. `Engine` holds all of its
// own dependencies explicitly — buffer, dictionaries, backends, cache —
// the same one-struct-owns-everything shape as
// `agents/daw/daw_agent.go`'s `DawAgent` (§9 "no cyclic ownership").
package engine

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/karukan-ime/karukan/buffer"
	"github.com/karukan-ime/karukan/candidate"
	"github.com/karukan-ime/karukan/config"
	"github.com/karukan-ime/karukan/dict"
	"github.com/karukan-ime/karukan/kana"
	"github.com/karukan-ime/karukan/learning"
	"github.com/karukan-ime/karukan/metrics"
	"github.com/karukan-ime/karukan/neural"
	"github.com/karukan-ime/karukan/romaji"
	"github.com/karukan-ime/karukan/strategy"
)

// Dicts bundles the two dictionary instances a conversion draws from: the
// shared, process-wide system dictionary and a per-engine (but still
// shared-read-only per §5) user dictionary built from the Mozc-TSV
// directory layering in dict.LoadUserDictDir.
type Dicts struct {
	User   *dict.Dict
	System *dict.Dict
}

// Backends bundles the two neural.Backend variants the adaptive strategy
// chooses between.
type Backends struct {
	Main  neural.Backend
	Light neural.Backend
}

// Slots are the four output projections the host polls after every
// ProcessKey call (§6). Each Has* flag is true only for the call that
// produced it — the engine recomputes them from scratch at the start of
// every ProcessKey, since spec §5's ordering guarantee ("commit for key N
// is fully flushed before the host observes any effect of key N+1") means
// there is never a need to remember a stale flag across calls.
type Slots struct {
	HasCommit bool
	Commit    string

	HasPreedit bool
	Preedit    string
	Caret      int

	HasAux bool
	Aux    string

	HasCandidates        bool
	ShouldHideCandidates bool
	Candidates           *candidate.List
}

// Engine is the root entity of spec §3: one per input context.
type Engine struct {
	state State

	kanaMode       Mode // Hiragana or Katakana only
	alphanumeric   bool
	liveConversion bool

	buf            *buffer.Buffer
	romajiState    *romaji.State
	bufferOnEnter  string // snapshot for Conversion's Escape restore

	cfg config.Config

	dicts    Dicts
	cache    *learning.Cache
	backends Backends
	strat    *strategy.Strategy
	timing   *metrics.Timing

	surrounding       string
	surroundingCursor int
	hasSurrounding    bool

	candidates *candidate.List

	slots Slots

	log *log.Logger
}

// New constructs an Engine. cache may be nil if learning is disabled or
// hasn't been loaded yet; a nil backend is treated the same as a backend
// that always errors (§7: a missing model behaves as zero candidates).
func New(cfg config.Config, dicts Dicts, cache *learning.Cache, backends Backends, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "karukan/engine: ", log.LstdFlags)
	}
	if dicts.User == nil {
		dicts.User = dict.NewEmpty()
	}
	if dicts.System == nil {
		dicts.System = dict.NewEmpty()
	}
	return &Engine{
		state:    Empty,
		kanaMode: Hiragana,
		buf:      buffer.New(),
		cfg:      cfg,
		dicts:    dicts,
		cache:    cache,
		backends: backends,
		strat:    strategy.New(cfg.Conversion),
		timing:   metrics.New(false),
		log:      logger,
	}
}

// State returns the current top-level state.
func (e *Engine) State() State { return e.state }

// Mode derives the reported mode: Alphanumeric takes precedence over live
// conversion, which takes precedence over the plain kana sub-mode.
func (e *Engine) Mode() Mode {
	switch {
	case e.alphanumeric:
		return Alphanumeric
	case e.liveConversion:
		return LiveConversion
	default:
		return e.kanaMode
	}
}

// IsEmpty reports whether the engine is in the Empty state with nothing
// pending (§6 `is_empty`).
func (e *Engine) IsEmpty() bool { return e.state == Empty }

// Slots returns the last computed output slots.
func (e *Engine) Slots() Slots { return e.slots }

// LastConversionMs and LastProcessKeyMs expose §5's timing measurements.
func (e *Engine) LastConversionMs() int64 { return e.timing.LastConversionMs() }
func (e *Engine) LastProcessKeyMs() int64 { return e.timing.LastProcessKeyMs() }

// SetSurroundingText records the host's surrounding-text snapshot (§3,
// §9). byteCursor is the cursor position in bytes into text, as the host
// widget reports it; only UTF-8 validity is checked (§9 Open Question
// resolution: "the engine trusts the host").
func (e *Engine) SetSurroundingText(text string, byteCursor int) {
	if !utf8.ValidString(text) {
		e.log.Printf("⚠️ surrounding text rejected: invalid UTF-8")
		return
	}
	if byteCursor < 0 {
		byteCursor = 0
	}
	if byteCursor > len(text) {
		byteCursor = len(text)
	}
	e.surrounding = text
	e.surroundingCursor = byteCursor
	e.hasSurrounding = true
}

// ClearSurroundingText marks the capability as absent — distinguished from
// SetSurroundingText("", 0), which means "present but empty" (§9).
func (e *Engine) ClearSurroundingText() {
	e.surrounding = ""
	e.surroundingCursor = 0
	e.hasSurrounding = false
}

// contextBeforeCursor returns the truncated left-context the neural
// backend consumes (§4.F). It is derived, at each conversion, from the most
// recent snapshot passed to SetSurroundingText; the engine does not request
// a fresh snapshot on state transitions.
func (e *Engine) contextBeforeCursor() string {
	if !e.cfg.Conversion.UseContext || !e.hasSurrounding {
		return ""
	}
	before := e.surrounding[:e.surroundingCursor]
	runes := []rune(before)
	max := e.cfg.Conversion.MaxContextLength
	if max > 0 && len(runes) > max {
		runes = runes[len(runes)-max:]
	}
	return string(runes)
}

// ProcessKey is the single entry point of §4.H / §6: it dispatches one key
// event, recomputes the four output slots, and reports whether the key was
// consumed by the IME (false means the host should forward it to the
// focused application unmodified).
func (e *Engine) ProcessKey(keysym uint32, modMask uint32, isRelease bool) bool {
	if isRelease {
		return false
	}

	var consumed bool
	e.timing.RecordProcessKey(context.Background(), func() {
		e.slots = Slots{}
		consumed = e.dispatch(keysym, modMask)
		e.project()
	})
	return consumed
}

func (e *Engine) dispatch(keysym uint32, modMask uint32) bool {
	// Right-Super returns to Hiragana from Alphanumeric regardless of
	// top-level state (§4.H "Alphanumeric mode... Right-Super returns to
	// Hiragana").
	if keysym == KeySuperR {
		if e.alphanumeric {
			e.alphanumeric = false
			return true
		}
		return false
	}

	ctrl := modMask&ModControl != 0
	shift := modMask&ModShift != 0

	// Ctrl+Shift+L toggles live conversion in Empty or Composing (§4.H
	// mode specifics).
	if ctrl && shift && (keysym == 'l' || keysym == 'L') && e.state != Conversion {
		e.liveConversion = !e.liveConversion
		return true
	}

	// Ctrl+K: Empty toggles the kana sub-mode outright; Composing rewrites
	// the buffer in place to the other kana sub-mode (§4.H).
	if ctrl && !shift && (keysym == 'k' || keysym == 'K') {
		return e.handleCtrlK()
	}

	switch e.state {
	case Empty:
		return e.dispatchEmpty(keysym, modMask)
	case Composing:
		return e.dispatchComposing(keysym, modMask)
	case Conversion:
		return e.dispatchConversion(keysym, modMask)
	default:
		return false
	}
}

func (e *Engine) handleCtrlK() bool {
	if e.alphanumeric || e.state == Conversion {
		return false
	}
	target := Katakana
	if e.kanaMode == Katakana {
		target = Hiragana
	}
	if e.state == Composing {
		if target == Katakana {
			e.buf.Replace(kana.ToKatakana(e.buf.Text()))
		} else {
			e.buf.Replace(kana.ToHiragana(e.buf.Text()))
		}
	}
	e.kanaMode = target
	return true
}

func (e *Engine) dispatchEmpty(keysym uint32, modMask uint32) bool {
	if !isPrintable(keysym) {
		return false
	}
	r := rune(keysym)
	shift := modMask&ModShift != 0

	e.beginComposing()

	if shift && isUpperASCII(r) {
		e.alphanumeric = true
		e.buf.Insert(string(r))
		return true
	}
	e.routePrintable(r)
	return true
}

func (e *Engine) beginComposing() {
	e.buf = buffer.New()
	e.romajiState = romaji.NewState()
	e.state = Composing
}

// routePrintable feeds one printable rune into the buffer, either
// literally (Alphanumeric) or through the romaji FSM (every other mode),
// and refreshes the auto-suggest slot / live-conversion preview.
func (e *Engine) routePrintable(r rune) {
	if e.alphanumeric {
		e.buf.Insert(string(r))
		return
	}
	out := e.romajiState.Push(r)
	if e.kanaMode == Katakana {
		out = kana.ToKatakana(out)
	}
	e.buf.Insert(out)

	if e.liveConversion {
		e.refreshLiveConversionPreview()
	}
}

func (e *Engine) dispatchComposing(keysym uint32, modMask uint32) bool {
	switch {
	case keysym == KeySpace || keysym == KeyTab || keysym == KeyDown:
		return e.commitOrConvert()

	case isPrintable(keysym):
		e.routePrintable(rune(keysym))
		return true

	case keysym == KeyBackSpace:
		if e.buf.Empty() && e.romajiState != nil && e.romajiState.Pending() != "" {
			// Nothing committed to the buffer yet: erase the in-progress
			// romaji instead of no-op'ing (§4.C "no-op at start" is about
			// the buffer, not the FSM's own pending bytes).
			e.romajiState.Reset()
			return true
		}
		e.buf.Backspace()
		if e.buf.Empty() {
			e.state = Empty
		}
		return true

	case keysym == KeyDelete:
		e.buf.DeleteForward()
		return true

	case keysym == KeyLeft:
		e.buf.MoveLeft()
		return true
	case keysym == KeyRight:
		e.buf.MoveRight()
		return true
	case keysym == KeyHome:
		e.buf.MoveHome()
		return true
	case keysym == KeyEnd:
		e.buf.MoveEnd()
		return true

	case keysym == KeyReturn:
		if e.liveConversion && !e.alphanumeric {
			return e.commitOrConvert()
		}
		e.flushRomaji()
		e.commitText(e.buf.Text())
		if !e.alphanumeric {
			e.recordLearning(e.buf.Text(), e.buf.Text())
		}
		e.state = Empty
		return true

	case keysym == KeyEscape:
		e.state = Empty
		e.buf = buffer.New()
		e.romajiState = nil
		return true

	default:
		return false
	}
}

func (e *Engine) flushRomaji() {
	if e.romajiState == nil {
		return
	}
	out := e.romajiState.Flush()
	if out == "" {
		return
	}
	if e.kanaMode == Katakana {
		out = kana.ToKatakana(out)
	}
	e.buf.Insert(out)
}

// commitOrConvert implements Space/Tab/Down from Composing: in
// Alphanumeric mode it commits the literal buffer plus a trailing space;
// in live-conversion mode it commits the previewed top candidate; in
// every other mode it flushes the FSM, runs conversion, and enters
// Conversion.
func (e *Engine) commitOrConvert() bool {
	if e.alphanumeric {
		e.commitText(e.buf.Text() + " ")
		e.state = Empty
		return true
	}

	e.flushRomaji()

	if e.liveConversion {
		preview := e.runConversion(e.buf.Text())
		if top, ok := preview.Current(); ok {
			e.commitText(top.Surface)
			e.recordLearning(e.buf.Text(), top.Surface)
		} else {
			e.commitText(e.buf.Text())
		}
		e.state = Empty
		return true
	}

	e.bufferOnEnter = e.buf.Text()
	e.candidates = e.runConversion(e.buf.Text())
	e.state = Conversion
	return true
}

func (e *Engine) dispatchConversion(keysym uint32, modMask uint32) bool {
	if e.candidates == nil {
		e.candidates = &candidate.List{}
	}
	switch {
	case keysym == KeySpace || keysym == KeyTab || keysym == KeyDown:
		e.candidates.Advance()
		return true

	case keysym == KeyUp:
		e.candidates.Retreat()
		return true

	case keysym == KeyReturn:
		e.commitCurrentCandidate()
		return true

	case keysym == KeyEscape:
		e.buf.Replace(e.bufferOnEnter)
		e.romajiState = romaji.NewState()
		e.state = Composing
		return true

	default:
		if idx, ok := isDigit1to9(keysym); ok {
			if c, ok := e.candidates.Select(idx - 1); ok {
				e.commitText(c.Surface)
				e.recordLearning(c.Reading, c.Surface)
				e.state = Empty
				return true
			}
			return true // digit consumed even if out of range for this page
		}
		if isPrintable(keysym) {
			e.commitCurrentCandidate()
			e.state = Empty
			return e.dispatchEmpty(keysym, modMask)
		}
		return false
	}
}

func (e *Engine) commitCurrentCandidate() {
	if c, ok := e.candidates.Current(); ok {
		e.commitText(c.Surface)
		e.recordLearning(c.Reading, c.Surface)
	} else {
		e.commitText(e.bufferOnEnter)
	}
	e.state = Empty
}

func (e *Engine) recordLearning(reading, surface string) {
	if !e.cfg.Learning.Enabled || e.cache == nil || reading == "" {
		return
	}
	e.cache.Record(reading, surface)
}

func (e *Engine) commitText(s string) {
	e.slots.HasCommit = true
	e.slots.Commit += s
}

// Commit flushes whatever is currently pending — composing buffer or
// selected candidate — without waiting for a specific key (§6 `commit`).
func (e *Engine) Commit() {
	switch e.state {
	case Composing:
		e.flushRomaji()
		text := e.buf.Text()
		if e.alphanumeric {
			e.commitText(text)
		} else {
			e.commitText(text)
			e.recordLearning(text, text)
		}
	case Conversion:
		e.commitCurrentCandidate()
	}
	e.state = Empty
	e.project()
}

// Deactivate implements the "any | deactivate" row of §4.H: commit
// whatever is pending, then flush the learning cache to disk if a path is
// configured and the cache is dirty (§3 lifecycle: "flushed on deactivate
// and on engine teardown — never on every commit").
func (e *Engine) Deactivate(learningPath string) error {
	e.Commit()
	return e.SaveLearning(learningPath)
}

// SaveLearning flushes the learning cache to path if it holds unsaved
// mutations (§6 `save_learning`, §4.E "only if dirty").
func (e *Engine) SaveLearning(path string) error {
	if e.cache == nil || path == "" {
		return nil
	}
	return e.cache.Save(path)
}

// Reset synchronously discards all in-progress state (§5 "the engine has
// no in-flight operations to cancel; reset() synchronously discards
// state"), without committing or recording anything.
func (e *Engine) Reset() {
	e.state = Empty
	e.buf = buffer.New()
	e.romajiState = nil
	e.candidates = nil
	e.alphanumeric = false
	e.liveConversion = false
	e.kanaMode = Hiragana
	e.slots = Slots{}
}

// project recomputes the four output slots from the current state. Commit
// is the one slot that isn't a projection of current state — it is set
// directly by whichever transition produced it, and project leaves it
// untouched.
func (e *Engine) project() {
	switch e.state {
	case Composing:
		text := e.buf.Text()
		// A live-conversion preview set during dispatch keeps its preedit.
		if !(e.liveConversion && e.slots.HasPreedit) {
			e.slots.HasPreedit = text != ""
			e.slots.Preedit = text
			e.slots.Caret = e.buf.Cursor()
		}

		if e.romajiState != nil && e.romajiState.Pending() != "" {
			e.slots.HasAux = true
			e.slots.Aux = e.romajiState.Pending()
		}

		if !e.alphanumeric && e.cfg.Learning.Enabled && e.cache != nil {
			suggestions := candidate.Suggest(text, e.cache)
			e.slots.Candidates = suggestions
			e.slots.HasCandidates = len(suggestions.Items) > 0
			e.slots.ShouldHideCandidates = len(suggestions.Items) == 0
		} else {
			e.slots.ShouldHideCandidates = true
		}

	case Conversion:
		if c, ok := e.candidates.Current(); ok {
			e.slots.HasPreedit = true
			e.slots.Preedit = c.Surface
			e.slots.Caret = len([]rune(c.Surface))
		}
		e.slots.Candidates = e.candidates
		e.slots.HasCandidates = e.candidates != nil && len(e.candidates.Items) > 0
		e.slots.ShouldHideCandidates = !e.slots.HasCandidates

	default: // Empty
		e.slots.ShouldHideCandidates = true
	}
}

// refreshLiveConversionPreview runs at most one conversion lookup per
// ProcessKey call (SPEC_FULL.md's live-conversion-debounce resolution) and
// shows its top candidate as the preedit text instead of the raw hiragana.
func (e *Engine) refreshLiveConversionPreview() {
	reading := e.buf.Text()
	if reading == "" {
		return
	}
	preview := e.runConversion(reading)
	if top, ok := preview.Current(); ok {
		e.slots.HasPreedit = true
		e.slots.Preedit = top.Surface
		e.slots.Caret = len([]rune(top.Surface))
	}
}

// runConversion fans the reading out to every candidate source (§4.G) and
// merges the results, tolerating a failing neural backend as zero
// candidates from that source (§7).
func (e *Engine) runConversion(reading string) *candidate.List {
	katakana := kana.ToKatakana(reading)
	tokenCount := strategy.EstimateTokens(katakana, 0, false)
	decision := e.strat.Choose(tokenCount)

	backend := e.backends.Light
	if decision.UseBackend == neural.Main {
		backend = e.backends.Main
	}

	var results []neural.Result
	if backend != nil {
		req := neural.Request{
			Katakana:    katakana,
			LeftContext: e.contextBeforeCursor(),
			BeamWidth:   decision.BeamWidth,
			NCandidates: e.cfg.Conversion.NumCandidates,
			NThreads:    e.cfg.Conversion.NThreads,
		}
		start := time.Now()
		_ = e.timing.RecordConversion(context.Background(), string(decision.UseBackend), func() (int, error) {
			r, err := backend.Convert(context.Background(), req)
			results = r
			return len(r), err
		})
		e.strat.RecordLatency(decision.UseBackend, time.Since(start))
		if results == nil {
			e.log.Printf("⚠️ neural backend %s produced no candidates this call", decision.UseBackend)
		}
	}

	var learningCache *learning.Cache
	if e.cfg.Learning.Enabled {
		learningCache = e.cache
	}

	return candidate.Merge(reading, candidate.Sources{
		Learning:     learningCache,
		UserDict:     e.dicts.User,
		SystemDict:   e.dicts.System,
		ModelResults: results,
	}, e.cfg.Conversion.NumCandidates)
}

func isUpperASCII(r rune) bool { return r >= 'A' && r <= 'Z' }
