package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karukan-ime/karukan/config"
	"github.com/karukan-ime/karukan/dict"
	"github.com/karukan-ime/karukan/learning"
	"github.com/karukan-ime/karukan/neural"
)

// fakeBackend is a canned neural.Backend used so engine tests never touch
// the network, mirroring §4.F's contract without a real inference server.
type fakeBackend struct {
	variant neural.Variant
	results map[string][]neural.Result
}

func (f *fakeBackend) Variant() neural.Variant { return f.variant }

func (f *fakeBackend) Convert(ctx context.Context, req neural.Request) ([]neural.Result, error) {
	return f.results[req.Katakana], nil
}

func (f *fakeBackend) Tokenize(s string) (int, bool) { return 0, false }

func typeKeys(t *testing.T, e *Engine, letters string) {
	t.Helper()
	for _, r := range letters {
		e.ProcessKey(uint32(r), 0, false)
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Conversion.DictPath = ""
	cache := learning.New(1000)
	backends := Backends{
		Main:  &fakeBackend{variant: neural.Main, results: map[string][]neural.Result{}},
		Light: &fakeBackend{variant: neural.Light, results: map[string][]neural.Result{}},
	}
	return New(cfg, Dicts{User: dict.NewEmpty(), System: dict.NewEmpty()}, cache, backends, nil)
}

func TestScenarioKonnichiwaCommit(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "konnnichiha")
	assert.Equal(t, Composing, e.State())
	assert.Equal(t, "こんにちは", e.Slots().Preedit)

	e.ProcessKey(KeyReturn, 0, false)
	assert.Equal(t, Empty, e.State())
	assert.True(t, e.Slots().HasCommit)
	assert.Equal(t, "こんにちは", e.Slots().Commit)
}

// TestSpaceWhileComposingStartsConversionNotLiteralSpace guards against
// treating KeySpace as just another printable rune: 0x20 falls inside
// isPrintable's ASCII range, so the Space/Tab/Down case in dispatchComposing
// must be checked before the generic printable case or every Space commits
// a literal space into the buffer instead of triggering conversion.
func TestSpaceWhileComposingStartsConversionNotLiteralSpace(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "ka")
	require.Equal(t, Composing, e.State())

	e.ProcessKey(KeySpace, 0, false)

	assert.Equal(t, Conversion, e.State())
	assert.NotContains(t, e.Slots().Preedit, " ")
}

func TestConversionCommitsFromSystemDictionaryAndRecordsLearning(t *testing.T) {
	cfg := config.Default()
	cache := learning.New(1000)
	sysDict := dict.Build(map[string][]dict.Record{
		"かんじ": {{Surface: "漢字", Score: 0}},
	})
	backends := Backends{
		Main:  &fakeBackend{variant: neural.Main},
		Light: &fakeBackend{variant: neural.Light},
	}
	e := New(cfg, Dicts{User: dict.NewEmpty(), System: sysDict}, cache, backends, nil)

	typeKeys(t, e, "kanji")
	e.ProcessKey(KeySpace, 0, false)
	require.Equal(t, Conversion, e.State())
	require.True(t, e.Slots().HasCandidates)

	page, _ := e.Slots().Candidates.Page()
	idx := -1
	for i, c := range page {
		if c.Surface == "漢字" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)

	e.ProcessKey(uint32('1'+idx), 0, false)
	assert.Equal(t, Empty, e.State())
	assert.Equal(t, "漢字", e.Slots().Commit)

	looked := cache.Lookup("かんじ")
	require.Len(t, looked, 1)
	assert.Equal(t, "漢字", looked[0].Surface)
}

func TestEscapeFromConversionRestoresComposing(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "ka")
	e.ProcessKey(KeySpace, 0, false)
	require.Equal(t, Conversion, e.State())

	e.ProcessKey(KeyEscape, 0, false)
	assert.Equal(t, Composing, e.State())
	assert.Equal(t, "か", e.Slots().Preedit)
}

func TestEscapeFromComposingDiscardsBuffer(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "ka")
	e.ProcessKey(KeyEscape, 0, false)
	assert.Equal(t, Empty, e.State())
	assert.False(t, e.Slots().HasCommit)
}

func TestBackspaceToEmptyTransitionsOut(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "a")
	require.Equal(t, Composing, e.State())
	e.ProcessKey(KeyBackSpace, 0, false)
	assert.Equal(t, Empty, e.State())
}

func TestAlphanumericModeLiteralSpaceCommit(t *testing.T) {
	e := newTestEngine(t)
	e.ProcessKey(uint32('L'), ModShift, false)
	assert.Equal(t, Alphanumeric, e.Mode())
	typeKeys(t, e, "inux")
	assert.Equal(t, "Linux", e.Slots().Preedit)

	e.ProcessKey(KeySpace, 0, false)
	assert.Equal(t, Empty, e.State())
	assert.Equal(t, "Linux ", e.Slots().Commit)

	e.ProcessKey(KeySuperR, 0, false)
	assert.Equal(t, Hiragana, e.Mode())
}

func TestCtrlKRewritesComposingBufferToKatakana(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "ka")
	require.Equal(t, "か", e.Slots().Preedit)

	e.ProcessKey('k', ModControl, false)
	assert.Equal(t, Katakana, e.Mode())
	assert.Equal(t, "カ", e.Slots().Preedit)
}

func TestAutoSuggestSurfacesLearnedPrediction(t *testing.T) {
	e := newTestEngine(t)
	e.cache.Record("わせだだいがく", "早稲田大学")

	typeKeys(t, e, "waseda")
	require.True(t, e.Slots().HasCandidates)
	found := false
	for _, c := range e.Slots().Candidates.Items {
		if c.Surface == "早稲田大学" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDeactivateCommitsPendingAndSavesLearning(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "ka")

	path := filepath.Join(t.TempDir(), "learning.tsv")
	require.NoError(t, e.Deactivate(path))
	assert.Equal(t, Empty, e.State())
	assert.True(t, e.Slots().HasCommit)
	assert.Equal(t, "か", e.Slots().Commit)

	loaded, err := learning.Load(path, 1000)
	require.NoError(t, err)
	assert.Len(t, loaded.Lookup("か"), 1)
}

func TestResetDiscardsWithoutCommitting(t *testing.T) {
	e := newTestEngine(t)
	typeKeys(t, e, "ka")
	e.Reset()
	assert.Equal(t, Empty, e.State())
	assert.False(t, e.Slots().HasCommit)
}

func TestKeyReleaseNeverConsumed(t *testing.T) {
	e := newTestEngine(t)
	assert.False(t, e.ProcessKey(uint32('a'), 0, true))
	assert.Equal(t, Empty, e.State())
}
