package errors_test

import (
	"errors"
	"fmt"

	predsqlErrors "github.com/ezoic/predsql/pkg/errors"
)

// Example shows the wrap-and-inspect pattern used throughout the module.
func Example() {
	base := predsqlErrors.NewValueError("ImportCSV", "row 17: passenger_count is not numeric")
	wrapped := fmt.Errorf("import command: %w", base)

	var valErr *predsqlErrors.ValueError
	if errors.As(wrapped, &valErr) {
		fmt.Println("operation:", valErr.Op)
	}
	fmt.Println(wrapped)

	// Output: operation: ImportCSV
	// import command: predsql: ImportCSV: row 17: passenger_count is not numeric
}

// Example_customErrorTypes extracts a typed error from deep in a chain.
func Example_customErrorTypes() {
	dimErr := predsqlErrors.NewDimensionError("Frame.Select", 5, 3, 1)
	wrapped := fmt.Errorf("frame materialization failed: %w", dimErr)

	var dimensionErr *predsqlErrors.DimensionError
	if errors.As(wrapped, &dimensionErr) {
		fmt.Printf("Dimension error: expected %d, got %d\n",
			dimensionErr.Expected, dimensionErr.Got)
	}

	// Output: Dimension error: expected 5, got 3
}

// Example_errorComparison matches errors by type and by sentinel.
func Example_errorComparison() {
	notFitted := predsqlErrors.NewNotFittedError("LinearRegression", "Predict")
	badValue := predsqlErrors.NewValueError("Correlate", "threshold must be in [0, 1]")

	var nf *predsqlErrors.NotFittedError
	if errors.As(notFitted, &nf) {
		fmt.Printf("%s needs Fit before %s\n", nf.ModelName, nf.Method)
	}

	var val *predsqlErrors.ValueError
	if errors.As(badValue, &val) {
		fmt.Printf("bad value in %s: %s\n", val.Op, val.Message)
	}

	if errors.Is(predsqlErrors.Wrap(predsqlErrors.ErrEmptyData, "loading frame"), predsqlErrors.ErrEmptyData) {
		fmt.Println("empty-data sentinel detected")
	}

	// Output: LinearRegression needs Fit before Predict
	// bad value in Correlate: threshold must be in [0, 1]
	// empty-data sentinel detected
}

// Example_translationErrors demonstrates the errors raised when a model
// cannot be exported or rendered as SQL.
func Example_translationErrors() {
	// A model type without a portable document form
	type opaqueModel struct{}
	modelErr := predsqlErrors.NewUnsupportedModelError("FromModel", opaqueModel{})
	fmt.Println(modelErr)

	// SQL generation refuses unknown dialects instead of guessing
	dialectErr := predsqlErrors.NewDialectError("Expression", "oracle")
	fmt.Println(dialectErr)

	var de *predsqlErrors.DialectError
	if errors.As(fmt.Errorf("score setup: %w", dialectErr), &de) {
		fmt.Printf("Rejected dialect: %s\n", de.Dialect)
	}

	// Output: predsql: FromModel: unsupported model type errors_test.opaqueModel
	// predsql: Expression: unknown SQL dialect "oracle"
	// Rejected dialect: oracle
}

// Example_pipelineChain walks a chain the way the CLI prints failures.
func Example_pipelineChain() {
	cause := predsqlErrors.New("no such table: trips")
	loadErr := predsqlErrors.Wrap(cause, "sample 1000 rows")
	fitErr := fmt.Errorf("fit command: %w", loadErr)

	fmt.Println(fitErr)
	fmt.Println("root cause reachable:", errors.Is(fitErr, cause))

	// Output: fit command: sample 1000 rows: no such table: trips
	// root cause reachable: true
}

// Example_errorLogging shows what an error chain looks like in a log line.
func Example_errorLogging() {
	err := predsqlErrors.NewModelError("Regressor.Fit", "empty training frame",
		predsqlErrors.ErrEmptyData)
	opErr := fmt.Errorf("fit command: %w", err)

	// In the CLI this goes through log.LogError, which records the chain;
	// %+v would add the stack captured by cockroachdb/errors.
	fmt.Printf("Error occurred during fit: %v\n", opErr)

	// Output: Error occurred during fit: fit command: predsql: Regressor.Fit: empty training frame: empty data
}
