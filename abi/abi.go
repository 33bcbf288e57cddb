// Package abi implements the host-facing boundary of spec §6: lifecycle,
// input, slot queries, timing, and durable-state operations over an opaque
// engine handle. The functions here are plain Go — no cgo — so they can be
// unit tested directly; cmd/libkarukan wraps them with the thin `//export`
// cgo shims that turn this into the stable C ABI itself.
//
// No pack example exports a C ABI, so the shape here follows Go's own
// standard convention for FFI boundaries: an integer handle indexing into a
// package-level registry, never a raw Go pointer crossing into C, which is
// the idiomatic way to satisfy §7's "FfiError — null handle" requirement
// without ever handing cgo a pointer the Go GC might move.
package abi

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/karukan-ime/karukan/config"
	"github.com/karukan-ime/karukan/dict"
	"github.com/karukan-ime/karukan/engine"
	"github.com/karukan-ime/karukan/errs"
	"github.com/karukan-ime/karukan/learning"
	"github.com/karukan-ime/karukan/neural"
)

// Handle is the opaque engine reference returned by New and accepted by
// every other function in this package.
type Handle uint64

type instance struct {
	mu           sync.Mutex
	eng          *engine.Engine
	learningPath string
}

var (
	registryMu sync.Mutex
	registry   = map[Handle]*instance{}
	nextHandle Handle = 1
)

// Options bundles the file paths §6 names for locating an engine's
// resources at construction time.
type Options struct {
	ConfigPath     string
	SystemDictPath string
	UserDictDir    string
	LearningPath   string
	BackendBaseURL string // local OpenAI-compatible inference endpoint
	BackendAPIKey  string
}

// New implements §6 lifecycle `new`+`init` combined: it loads config and
// dictionaries (tolerating any of them being missing or invalid per §7 —
// degrading to defaults/empty rather than failing), builds the engine, and
// registers it under a fresh Handle. A non-nil returned error corresponds
// to `init()` returning non-zero (§7): the handle is still valid and usable
// with degraded behavior, matching "no error aborts the process."
func New(opts Options) (Handle, error) {
	cfg, cfgErr := config.Load(opts.ConfigPath)

	sysDict := dict.NewEmpty()
	if opts.SystemDictPath != "" {
		if d, err := dict.Load(opts.SystemDictPath); err == nil {
			sysDict = d
		}
	}

	userDict := dict.NewEmpty()
	if opts.UserDictDir != "" {
		if entries, err := dict.LoadUserDictDir(opts.UserDictDir); err == nil {
			userDict = dict.Build(entries)
		}
	}

	var cache *learning.Cache
	if cfg.Learning.Enabled {
		cache, _ = learning.Load(opts.LearningPath, cfg.Learning.MaxEntries)
	}

	backends := engine.Backends{
		Main:  neural.NewMain(opts.BackendBaseURL, opts.BackendAPIKey, cfg.Conversion.Model, 0),
		Light: neural.NewLight(opts.BackendBaseURL, opts.BackendAPIKey, cfg.Conversion.LightModel, 0),
	}

	eng := engine.New(cfg, engine.Dicts{User: userDict, System: sysDict}, cache, backends, nil)

	registryMu.Lock()
	h := nextHandle
	nextHandle++
	registry[h] = &instance{eng: eng, learningPath: opts.LearningPath}
	registryMu.Unlock()

	return h, cfgErr
}

// Free releases a handle. Calling any other function with a freed or
// unknown handle returns an FfiError.
func Free(h Handle) {
	registryMu.Lock()
	delete(registry, h)
	registryMu.Unlock()
}

func lookup(h Handle) (*instance, error) {
	registryMu.Lock()
	inst, ok := registry[h]
	registryMu.Unlock()
	if !ok {
		return nil, errs.New(errs.Ffi, "abi.lookup", fmt.Errorf("unknown or freed handle %d", h))
	}
	return inst, nil
}

// ProcessKey dispatches one key event (§6 `process_key`).
func ProcessKey(h Handle, keysym, modMask uint32, isRelease bool) (consumed bool, err error) {
	inst, err := lookup(h)
	if err != nil {
		return false, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.eng.ProcessKey(keysym, modMask, isRelease), nil
}

// Reset synchronously discards in-progress state (§6 `reset`).
func Reset(h Handle) error {
	inst, err := lookup(h)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.eng.Reset()
	return nil
}

// SetSurroundingText records the host's surrounding-text snapshot (§6
// `set_surrounding_text`). byteCursor is not validated here; the engine
// clamps it to the text's byte range. The text itself is validated as UTF-8
// (§7 FfiError: "invalid UTF-8 from host").
func SetSurroundingText(h Handle, text string, byteCursor int) error {
	inst, err := lookup(h)
	if err != nil {
		return err
	}
	if !utf8.ValidString(text) {
		return errs.New(errs.Ffi, "abi.SetSurroundingText", fmt.Errorf("surrounding text is not valid UTF-8"))
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.eng.SetSurroundingText(text, byteCursor)
	return nil
}

// Commit flushes pending composition/candidate state (§6 `commit`).
func Commit(h Handle) error {
	inst, err := lookup(h)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.eng.Commit()
	return nil
}

// IsEmpty reports whether the engine has nothing pending (§6 `is_empty`).
func IsEmpty(h Handle) (bool, error) {
	inst, err := lookup(h)
	if err != nil {
		return false, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.eng.IsEmpty(), nil
}

// SaveLearning flushes the learning cache to its configured path (§6
// `save_learning`).
func SaveLearning(h Handle) error {
	inst, err := lookup(h)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.eng.SaveLearning(inst.learningPath)
}

func withEngine[T any](h Handle, f func(*engine.Engine) T) (T, error) {
	var zero T
	inst, err := lookup(h)
	if err != nil {
		return zero, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return f(inst.eng), nil
}

// HasPreedit, GetPreedit, PreeditLen, Caret implement the `preedit` slot
// query family of §6. All returned strings are valid until the next
// ProcessKey call, per §6.
func HasPreedit(h Handle) (bool, error) {
	return withEngine(h, func(e *engine.Engine) bool { return e.Slots().HasPreedit })
}
func GetPreedit(h Handle) (string, error) {
	return withEngine(h, func(e *engine.Engine) string { return e.Slots().Preedit })
}
func PreeditLen(h Handle) (int, error) {
	return withEngine(h, func(e *engine.Engine) int { return utf8.RuneCountInString(e.Slots().Preedit) })
}
func Caret(h Handle) (int, error) {
	return withEngine(h, func(e *engine.Engine) int { return e.Slots().Caret })
}

// HasCommit, GetCommit, CommitLen implement the `commit` slot query family.
func HasCommit(h Handle) (bool, error) {
	return withEngine(h, func(e *engine.Engine) bool { return e.Slots().HasCommit })
}
func GetCommit(h Handle) (string, error) {
	return withEngine(h, func(e *engine.Engine) string { return e.Slots().Commit })
}
func CommitLen(h Handle) (int, error) {
	return withEngine(h, func(e *engine.Engine) int { return utf8.RuneCountInString(e.Slots().Commit) })
}

// HasCandidates, ShouldHideCandidates, CandidateCount, GetCandidate,
// GetAnnotation, CandidateCursor implement the `candidates` slot query
// family.
func HasCandidates(h Handle) (bool, error) {
	return withEngine(h, func(e *engine.Engine) bool { return e.Slots().HasCandidates })
}
func ShouldHideCandidates(h Handle) (bool, error) {
	return withEngine(h, func(e *engine.Engine) bool { return e.Slots().ShouldHideCandidates })
}
func CandidateCount(h Handle) (int, error) {
	return withEngine(h, func(e *engine.Engine) int {
		if e.Slots().Candidates == nil {
			return 0
		}
		return len(e.Slots().Candidates.Items)
	})
}
func GetCandidate(h Handle, i int) (string, error) {
	return withEngine(h, func(e *engine.Engine) string {
		cl := e.Slots().Candidates
		if cl == nil || i < 0 || i >= len(cl.Items) {
			return ""
		}
		return cl.Items[i].Surface
	})
}
func GetAnnotation(h Handle, i int) (string, error) {
	return withEngine(h, func(e *engine.Engine) string {
		cl := e.Slots().Candidates
		if cl == nil || i < 0 || i >= len(cl.Items) {
			return ""
		}
		return cl.Items[i].Source.Annotation()
	})
}
func CandidateCursor(h Handle) (int, error) {
	return withEngine(h, func(e *engine.Engine) int {
		cl := e.Slots().Candidates
		if cl == nil {
			return 0
		}
		return cl.Cursor()
	})
}

// HasAux, GetAux, AuxLen implement the `aux` slot query family.
func HasAux(h Handle) (bool, error) {
	return withEngine(h, func(e *engine.Engine) bool { return e.Slots().HasAux })
}
func GetAux(h Handle) (string, error) {
	return withEngine(h, func(e *engine.Engine) string { return e.Slots().Aux })
}
func AuxLen(h Handle) (int, error) {
	return withEngine(h, func(e *engine.Engine) int { return utf8.RuneCountInString(e.Slots().Aux) })
}

// LastConversionMs and LastProcessKeyMs implement §6's timing family.
func LastConversionMs(h Handle) (int64, error) {
	return withEngine(h, func(e *engine.Engine) int64 { return e.LastConversionMs() })
}
func LastProcessKeyMs(h Handle) (int64, error) {
	return withEngine(h, func(e *engine.Engine) int64 { return e.LastProcessKeyMs() })
}
