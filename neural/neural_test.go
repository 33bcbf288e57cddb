package neural

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/karukan-ime/karukan/kana"
)

func TestBuildPromptLayout(t *testing.T) {
	got := buildPrompt("こんにちは", "ニホンゴ")
	want := string(kana.MarkerContext) + "こんにちは" + string(kana.MarkerInput) + "ニホンゴ" + string(kana.MarkerOutput)
	assert.Equal(t, want, got)
}

func TestBuildPromptEmptyContext(t *testing.T) {
	got := buildPrompt("", "カンジ")
	want := string(kana.MarkerContext) + string(kana.MarkerInput) + "カンジ" + string(kana.MarkerOutput)
	assert.Equal(t, want, got)
}

func TestBackendErrorUnwraps(t *testing.T) {
	inner := assertErr{"boom"}
	err := &BackendError{Variant: Main, Op: "Convert", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "neural(main)")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
