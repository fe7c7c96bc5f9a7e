package modelspec_test

import (
	"fmt"
	"strings"

	"github.com/ezoic/predsql/modelspec"
)

// Decoding a hand-written document yields a typed spec ready for
// prediction or SQL generation.
func ExampleDecode() {
	doc := `format_version: "1.0"
kind: linear
model:
  features: [trip_distance, passenger_count]
  target: fare_amount
  intercept: 2.5
  coefficients: [1.5, -3.0]
`
	spec, err := modelspec.Decode(strings.NewReader(doc))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println(spec.Kind())
	fmt.Println(spec.Target())

	y, err := spec.Predict([]float64{3.0, -1.5})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("%.2f\n", y)

	// Output:
	// linear
	// fare_amount
	// 11.50
}

// Validate catches structural defects before a document reaches SQL
// generation or disk.
func ExampleSpec_validate() {
	bad := &modelspec.Linear{
		Features:     []string{"trip_distance"},
		Intercept:    1.0,
		Coefficients: []float64{0.5, 0.25},
	}
	if err := bad.Validate(); err != nil {
		fmt.Println("invalid document")
	}

	// Output:
	// invalid document
}
