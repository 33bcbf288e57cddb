// Package neural implements spec §4.F's opaque backend contract: a pure
// function from a katakana prompt to a ranked list of decoded strings,
// realized concretely as a client against an OpenAI-Responses-API-compatible
// local inference server (the teacher's own `llm.OpenAIProvider`, repointed
// at a local endpoint so §1's "no cloud features" non-goal still holds —
// nothing here ever reaches a remote host unless the caller configures one).
package neural

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/karukan-ime/karukan/errs"
	"github.com/karukan-ime/karukan/kana"
)

// Variant tags which of the two neural models a Backend wraps (§9 "Backend
// polymorphism": tagged dispatch, not open inheritance).
type Variant string

const (
	Main  Variant = "main"
	Light Variant = "light"
)

// Result is one ranked decoding.
type Result struct {
	Decoded           string
	CumulativeLogProb float64
}

// Request bundles one conversion call's parameters (§4.F contract).
type Request struct {
	Katakana    string
	LeftContext string // already truncated to max_context_length by the caller
	BeamWidth   int
	NCandidates int
	NThreads    int
}

// BackendError is the ModelError taxonomy of §7: missing model, decode
// timeout, or internal error. The merger (candidate package) treats any
// non-nil error as "zero candidates from this source", never a fatal
// failure (§7 propagation policy).
type BackendError struct {
	Variant Variant
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("neural(%s): %s: %v", e.Variant, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Backend is the capability every variant implements (§9: "{convert,
// tokenize?} — tagged dispatch rather than open inheritance").
type Backend interface {
	Variant() Variant
	Convert(ctx context.Context, req Request) ([]Result, error)
	// Tokenize estimates token count for req.Katakana. The bool reports
	// whether the estimate came from a real tokenizer (true) or the §4.I
	// byte-length/3 fallback (false).
	Tokenize(s string) (int, bool)
}

// openAIBackend is the one concrete Backend implementation: a Responses API
// client against model, matching the teacher's own `OpenAIProvider` — same
// client construction (`openai.NewClient(option.WithAPIKey(...))`), same
// `client.Responses.New` call and `resp.OutputText()` extraction — but
// pointed at baseURL instead of the public OpenAI endpoint.
type openAIBackend struct {
	variant Variant
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewMain returns the Main-variant Backend: baseURL is typically a local
// inference server's OpenAI-compatible endpoint (llama.cpp server, vLLM,
// etc.) per SPEC_FULL.md's DOMAIN STACK entry for openai-go.
func NewMain(baseURL, apiKey, model string, timeout time.Duration) Backend {
	return newOpenAIBackend(Main, baseURL, apiKey, model, timeout)
}

// NewLight returns the Light-variant Backend, typically pointed at a
// smaller/faster model on the same or a different local endpoint.
func NewLight(baseURL, apiKey, model string, timeout time.Duration) Backend {
	return newOpenAIBackend(Light, baseURL, apiKey, model, timeout)
}

func newOpenAIBackend(v Variant, baseURL, apiKey, model string, timeout time.Duration) Backend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIBackend{
		variant: v,
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

func (b *openAIBackend) Variant() Variant { return b.variant }

// Convert builds the jinen prompt (§4.F: `⟨CTX⟩<context>⟨IN⟩<katakana>⟨OUT⟩`)
// and asks the model for req.NCandidates distinct ranked completions. The
// Responses API answers one completion per call, so NCandidates distinct
// candidates come from NCandidates calls at rising temperature — call 0 at
// temperature 0 for the model's single best guess, later calls progressively
// more exploratory. req.BeamWidth is not used: there is no beam-search
// parameter on a single-turn Responses call, and the number of calls is set
// by req.NCandidates alone.
func (b *openAIBackend) Convert(ctx context.Context, req Request) ([]Result, error) {
	if req.NCandidates <= 0 {
		req.NCandidates = 1
	}

	transaction := sentry.StartTransaction(ctx, fmt.Sprintf("neural.convert.%s", b.variant))
	defer transaction.Finish()
	transaction.SetTag("variant", string(b.variant))
	transaction.SetTag("model", b.model)

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	prompt := buildPrompt(req.LeftContext, req.Katakana)
	input := responses.ResponseNewParamsInputUnion{
		OfInputItemList: responses.ResponseInputParam{
			responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
		},
	}

	span := transaction.StartChild("neural.api_call")
	defer span.Finish()

	out := make([]Result, 0, req.NCandidates)
	seen := make(map[string]struct{}, req.NCandidates)
	var lastErr error
	for i := 0; i < req.NCandidates; i++ {
		params := responses.ResponseNewParams{Model: b.model, Input: input}
		if i > 0 {
			params.Temperature = openai.Float(float64(i) / float64(req.NCandidates))
		}

		resp, err := b.client.Responses.New(ctx, params)
		if err != nil {
			lastErr = err
			continue
		}
		text := resp.OutputText()
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, Result{
			Decoded:           text,
			CumulativeLogProb: float64(req.NCandidates - i), // call 0 ranks highest
		})
	}

	if len(out) == 0 && lastErr != nil {
		return nil, errs.New(errs.Model, "neural.Convert", &BackendError{Variant: b.variant, Op: "Convert", Err: lastErr})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CumulativeLogProb > out[j].CumulativeLogProb
	})
	return out, nil
}

// Tokenize has no real tokenizer wired in (the local endpoint's tokenizer
// isn't exposed over the Responses API wire protocol); callers fall back to
// the §4.I byte-length/3 estimate, signaled by the false return.
func (b *openAIBackend) Tokenize(s string) (int, bool) {
	return 0, false
}

// buildPrompt lays out the jinen format with the fixed PUA markers from the
// kana package, per §4.F.
func buildPrompt(context, katakana string) string {
	var out []rune
	out = append(out, kana.MarkerContext)
	out = append(out, []rune(context)...)
	out = append(out, kana.MarkerInput)
	out = append(out, []rune(katakana)...)
	out = append(out, kana.MarkerOutput)
	return string(out)
}
