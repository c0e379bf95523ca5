// Package formatting renders relay's CLI output.
//
// Every listing can be printed as a rounded go-pretty table, as JSON or as
// YAML. JSON and YAML output contain the same data as the table, so scripts
// can consume it.
package formatting
