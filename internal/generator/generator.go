package generator

import (
	"context"
	"errors"
	"strings"

	"medrag/internal/apperrors"
)

// Generator turns a composed prompt into answer text with one remote call.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of one generation: either Text or the reason it failed.
type Result struct {
	Text string
	Err  error
}

func (r Result) OK() bool { return r.Err == nil }

// Display renders the result for the user. Configuration errors are shown as is, other
// failures are prefixed so they cannot be mistaken for model output.
func (r Result) Display() string {
	switch {
	case r.Err == nil:
		return r.Text
	case apperrors.IsCode(r.Err, apperrors.CodeConfig):
		return r.Err.Error()
	case apperrors.IsCode(r.Err, apperrors.CodeRetrieval):
		return "Error retrieving context: " + r.Err.Error()
	default:
		return "Error generating answer: " + r.Err.Error()
	}
}

// Failed wraps err as a Result.
func Failed(err error) Result { return Result{Err: err} }

// Answer issues a single generation request. Failures are returned in the Result, never retried.
func Answer(ctx context.Context, gen Generator, prompt string) Result {
	if gen == nil {
		return Failed(apperrors.Wrap(apperrors.CodeConfig, "no answer generator configured", nil))
	}
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		return Failed(apperrors.Wrap(apperrors.CodeLLM, gen.Name(), err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failed(apperrors.Wrap(apperrors.CodeLLM, gen.Name(), errors.New("empty response")))
	}
	return Result{Text: text}
}

// MissingCredential is the error constructors return when no API key is available.
func MissingCredential(envVar string) error {
	return apperrors.Wrap(apperrors.CodeConfig, "API key is missing. Please set "+envVar+" in .env or pass it directly.", nil)
}
