package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
)

// TestTypedErrorsSurviveWrapping wraps each typed error twice and checks
// errors.As still recovers the concrete type with its fields intact.
func TestTypedErrorsSurviveWrapping(t *testing.T) {
	t.Run("DimensionError", func(t *testing.T) {
		wrapped := fmt.Errorf("fit command: %w",
			predsqlErrors.Wrap(predsqlErrors.NewDimensionError("Frame.Matrix", 500, 499, 0), "materialize"))

		var dimErr *predsqlErrors.DimensionError
		if !errors.As(wrapped, &dimErr) {
			t.Fatalf("errors.As failed to extract DimensionError from %v", wrapped)
		}
		if dimErr.Expected != 500 || dimErr.Got != 499 || dimErr.Axis != 0 {
			t.Errorf("fields lost in wrapping: %+v", dimErr)
		}
	})

	t.Run("NotFittedError", func(t *testing.T) {
		wrapped := fmt.Errorf("export: %w", predsqlErrors.NewNotFittedError("Regressor", "PortableSpec"))

		var nfErr *predsqlErrors.NotFittedError
		if !errors.As(wrapped, &nfErr) {
			t.Fatal("errors.As failed to extract NotFittedError")
		}
		if nfErr.ModelName != "Regressor" || nfErr.Method != "PortableSpec" {
			t.Errorf("fields lost in wrapping: %+v", nfErr)
		}
	})

	t.Run("DialectError", func(t *testing.T) {
		wrapped := predsqlErrors.Wrap(predsqlErrors.NewDialectError("Expression", "oracle"), "score setup")

		var dErr *predsqlErrors.DialectError
		if !errors.As(wrapped, &dErr) {
			t.Fatal("errors.As failed to extract DialectError")
		}
		if dErr.Dialect != "oracle" {
			t.Errorf("dialect lost in wrapping: %q", dErr.Dialect)
		}
	})

	t.Run("UnsupportedModelError", func(t *testing.T) {
		type opaque struct{}
		wrapped := fmt.Errorf("convert command: %w", predsqlErrors.NewUnsupportedModelError("FromModel", opaque{}))

		var umErr *predsqlErrors.UnsupportedModelError
		if !errors.As(wrapped, &umErr) {
			t.Fatal("errors.As failed to extract UnsupportedModelError")
		}
		if !strings.Contains(umErr.TypeName, "opaque") {
			t.Errorf("type name not recorded: %q", umErr.TypeName)
		}
	})
}

// TestModelErrorChain checks that ModelError exposes its cause to errors.Is
// while staying extractable itself.
func TestModelErrorChain(t *testing.T) {
	modelErr := predsqlErrors.NewModelError("LinearRegression.Fit", "empty data", predsqlErrors.ErrEmptyData)
	wrapped := fmt.Errorf("fit command: %w", modelErr)

	if !errors.Is(wrapped, predsqlErrors.ErrEmptyData) {
		t.Error("sentinel not reachable through ModelError and fmt wrapper")
	}

	var asModel *predsqlErrors.ModelError
	if !errors.As(wrapped, &asModel) {
		t.Fatal("errors.As failed to extract ModelError")
	}
	if asModel.Unwrap() != predsqlErrors.ErrEmptyData {
		t.Error("Unwrap did not return the original cause")
	}

	// Without a cause the message must not grow a trailing colon.
	bare := predsqlErrors.NewModelError("Loader.Parse", "no trees found", nil)
	if got := bare.Error(); strings.HasSuffix(got, ": <nil>") || strings.HasSuffix(got, ": ") {
		t.Errorf("nil cause leaked into message: %q", got)
	}
}

// TestSentinels covers the package sentinels end to end.
func TestSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "singular matrix through ModelError",
			err:      predsqlErrors.NewModelError("LinearRegression.Fit", "singular matrix", predsqlErrors.ErrSingularMatrix),
			sentinel: predsqlErrors.ErrSingularMatrix,
		},
		{
			name:     "invalid document through Wrap",
			err:      predsqlErrors.Wrap(predsqlErrors.ErrInvalidModel, "node 3: child index out of range"),
			sentinel: predsqlErrors.ErrInvalidModel,
		},
		{
			name:     "unsupported objective through Wrapf",
			err:      predsqlErrors.Wrapf(predsqlErrors.ErrNotImplemented, "objective %q", "binary"),
			sentinel: predsqlErrors.ErrNotImplemented,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tc.err)
			}
			rewrapped := fmt.Errorf("outer: %w", tc.err)
			if !predsqlErrors.Is(rewrapped, tc.sentinel) {
				t.Errorf("sentinel lost after second wrap: %v", rewrapped)
			}
		})
	}
}

// TestMessagePrefix checks every constructor stamps the module prefix, so
// log lines identify their origin.
func TestMessagePrefix(t *testing.T) {
	msgs := []error{
		predsqlErrors.NewDimensionError("Op", 1, 2, 0),
		predsqlErrors.NewNotFittedError("Model", "Predict"),
		predsqlErrors.NewValueError("Op", "bad input"),
		predsqlErrors.NewModelError("Op", "failed", nil),
		predsqlErrors.NewUnsupportedModelError("Op", 42),
		predsqlErrors.NewDialectError("Op", "dialectname"),
	}
	for _, err := range msgs {
		if !strings.HasPrefix(err.Error(), "predsql: ") {
			t.Errorf("missing prefix: %q", err.Error())
		}
	}
}

// TestStackTraces checks the cockroachdb re-exports keep stacks reachable
// via %+v.
func TestStackTraces(t *testing.T) {
	err := predsqlErrors.Newf("boom at iteration %d", 7)
	detailed := fmt.Sprintf("%+v", err)

	if !strings.Contains(detailed, "boom at iteration 7") {
		t.Errorf("message missing from verbose form: %s", detailed)
	}
	if !strings.Contains(detailed, "\n") {
		t.Error("expected multi-line stack in verbose form")
	}
}

// TestRecover tests panic conversion in exported methods.
func TestRecover(t *testing.T) {
	panicking := func() (err error) {
		defer predsqlErrors.Recover(&err, "TestOp")
		panic("index out of range")
	}

	err := panicking()
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if got := err.Error(); got == "" {
		t.Errorf("recovered error has empty message")
	}

	clean := func() (err error) {
		defer predsqlErrors.Recover(&err, "TestOp")
		return nil
	}
	if err := clean(); err != nil {
		t.Errorf("Recover overwrote a nil error: %v", err)
	}

	typed := func() (err error) {
		defer predsqlErrors.Recover(&err, "TestOp")
		return predsqlErrors.NewValueError("TestOp", "bad input")
	}
	err = typed()
	var valErr *predsqlErrors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("Recover clobbered a normal typed return: %v", err)
	}
}
