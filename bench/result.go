// Package bench runs the generator/algorithm process pipelines and
// emits per-case benchmark results as JSON lines.
package bench

// Result is one timing record parsed from an algorithm process. Field
// order is the program's primary machine-readable output and must stay
// byte-stable.
type Result struct {
	ID           string `json:"id"`
	Language     string `json:"language"`
	FunctionName string `json:"function_name"`
	Duration     uint64 `json:"duration"`
}
