package rules

import (
	"errors"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "value != ''", "contact.email", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Target != "contact.email" {
		t.Fatalf("expected target metadata, got %q", evalErr.Target)
	}
	if !errors.Is(evalErr, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "hero.title", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Target != "hero.title" {
		t.Fatalf("missing metadata should be filled, got %+v", existing)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	err := wrapEvaluatorError("cel", errors.New("rules: already described"))
	if err.Error() != "rules: already described" {
		t.Fatalf("expected prefixed error untouched, got %q", err.Error())
	}
	err = wrapEvaluatorError("cel", errors.New("bad"))
	if err.Error() != "rules: cel evaluator: bad" {
		t.Fatalf("unexpected wrapped message %q", err.Error())
	}
}
