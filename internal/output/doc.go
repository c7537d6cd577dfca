// Package output renders contracts, change lists and analysis reports for the CLI.
//
// Three formats are supported:
//
//   - human: tables and a short summary, optionally colored
//   - json: deterministic, indented JSON
//   - yaml: the same document as YAML
//
// # Encoding Rules
//
// JSON and YAML output go through the same normalization so that identical results produce
// byte-identical documents:
//
//  1. Stable key ordering: object keys are sorted alphabetically
//  2. Float formatting: rounded to at most 6 decimal places
//  3. Null handling: nil fields are omitted, empty lists are kept
//
// # Ordering
//
// Human tables list changes by type (BREAKING, REMOVED, MODIFIED, ADDED), then endpoint,
// then verb. JSON and YAML keep the order the comparison produced.
package output
