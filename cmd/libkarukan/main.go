// Command libkarukan builds the stable C ABI of spec §6 as a C shared
// library (`go build -buildmode=c-shared`). Every exported function is a
// thin shim converting C types to and from the plain-Go abi package, which
// carries the actual logic and is unit tested on its own.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/karukan-ime/karukan/abi"
)

//export karukan_new
func karukan_new(configPath, sysDictPath, userDictDir, learningPath, backendBaseURL, backendAPIKey *C.char) C.uint64_t {
	h, _ := abi.New(abi.Options{
		ConfigPath:     cGoString(configPath),
		SystemDictPath: cGoString(sysDictPath),
		UserDictDir:    cGoString(userDictDir),
		LearningPath:   cGoString(learningPath),
		BackendBaseURL: cGoString(backendBaseURL),
		BackendAPIKey:  cGoString(backendAPIKey),
	})
	return C.uint64_t(h)
}

//export karukan_free
func karukan_free(handle C.uint64_t) {
	abi.Free(abi.Handle(handle))
}

//export karukan_process_key
func karukan_process_key(handle C.uint64_t, keysym C.uint32_t, modMask C.uint32_t, isRelease C.int) C.int {
	consumed, _ := abi.ProcessKey(abi.Handle(handle), uint32(keysym), uint32(modMask), isRelease != 0)
	return boolToC(consumed)
}

//export karukan_reset
func karukan_reset(handle C.uint64_t) {
	_ = abi.Reset(abi.Handle(handle))
}

//export karukan_set_surrounding_text
func karukan_set_surrounding_text(handle C.uint64_t, utf8Text *C.char, byteCursor C.int) {
	_ = abi.SetSurroundingText(abi.Handle(handle), cGoString(utf8Text), int(byteCursor))
}

//export karukan_commit
func karukan_commit(handle C.uint64_t) {
	_ = abi.Commit(abi.Handle(handle))
}

//export karukan_is_empty
func karukan_is_empty(handle C.uint64_t) C.int {
	v, _ := abi.IsEmpty(abi.Handle(handle))
	return boolToC(v)
}

//export karukan_save_learning
func karukan_save_learning(handle C.uint64_t) C.int {
	err := abi.SaveLearning(abi.Handle(handle))
	return boolToC(err == nil)
}

//export karukan_has_preedit
func karukan_has_preedit(handle C.uint64_t) C.int {
	v, _ := abi.HasPreedit(abi.Handle(handle))
	return boolToC(v)
}

//export karukan_get_preedit
func karukan_get_preedit(handle C.uint64_t) *C.char {
	s, _ := abi.GetPreedit(abi.Handle(handle))
	return C.CString(s)
}

//export karukan_preedit_len
func karukan_preedit_len(handle C.uint64_t) C.int {
	n, _ := abi.PreeditLen(abi.Handle(handle))
	return C.int(n)
}

//export karukan_caret
func karukan_caret(handle C.uint64_t) C.int {
	n, _ := abi.Caret(abi.Handle(handle))
	return C.int(n)
}

//export karukan_has_commit
func karukan_has_commit(handle C.uint64_t) C.int {
	v, _ := abi.HasCommit(abi.Handle(handle))
	return boolToC(v)
}

//export karukan_get_commit
func karukan_get_commit(handle C.uint64_t) *C.char {
	s, _ := abi.GetCommit(abi.Handle(handle))
	return C.CString(s)
}

//export karukan_commit_len
func karukan_commit_len(handle C.uint64_t) C.int {
	n, _ := abi.CommitLen(abi.Handle(handle))
	return C.int(n)
}

//export karukan_has_candidates
func karukan_has_candidates(handle C.uint64_t) C.int {
	v, _ := abi.HasCandidates(abi.Handle(handle))
	return boolToC(v)
}

//export karukan_should_hide_candidates
func karukan_should_hide_candidates(handle C.uint64_t) C.int {
	v, _ := abi.ShouldHideCandidates(abi.Handle(handle))
	return boolToC(v)
}

//export karukan_candidate_count
func karukan_candidate_count(handle C.uint64_t) C.int {
	n, _ := abi.CandidateCount(abi.Handle(handle))
	return C.int(n)
}

//export karukan_get_candidate
func karukan_get_candidate(handle C.uint64_t, index C.int) *C.char {
	s, _ := abi.GetCandidate(abi.Handle(handle), int(index))
	return C.CString(s)
}

//export karukan_get_annotation
func karukan_get_annotation(handle C.uint64_t, index C.int) *C.char {
	s, _ := abi.GetAnnotation(abi.Handle(handle), int(index))
	return C.CString(s)
}

//export karukan_candidate_cursor
func karukan_candidate_cursor(handle C.uint64_t) C.int {
	n, _ := abi.CandidateCursor(abi.Handle(handle))
	return C.int(n)
}

//export karukan_has_aux
func karukan_has_aux(handle C.uint64_t) C.int {
	v, _ := abi.HasAux(abi.Handle(handle))
	return boolToC(v)
}

//export karukan_get_aux
func karukan_get_aux(handle C.uint64_t) *C.char {
	s, _ := abi.GetAux(abi.Handle(handle))
	return C.CString(s)
}

//export karukan_aux_len
func karukan_aux_len(handle C.uint64_t) C.int {
	n, _ := abi.AuxLen(abi.Handle(handle))
	return C.int(n)
}

//export karukan_last_conversion_ms
func karukan_last_conversion_ms(handle C.uint64_t) C.int64_t {
	n, _ := abi.LastConversionMs(abi.Handle(handle))
	return C.int64_t(n)
}

//export karukan_last_process_key_ms
func karukan_last_process_key_ms(handle C.uint64_t) C.int64_t {
	n, _ := abi.LastProcessKeyMs(abi.Handle(handle))
	return C.int64_t(n)
}

//export karukan_free_string
func karukan_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

func cGoString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func main() {}
