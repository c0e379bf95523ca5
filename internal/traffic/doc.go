// Package traffic meters the lines exchanged with each server.
//
// Every line counts as one message in its direction; byte counts exclude the
// trailing newline and token counts are the EstimateTokens approximation.
// Protocol sessions call Record directly. Background stream readers call
// Observe, which hands the line to the single goroutine running Run so they
// never contend on the meter lock.
package traffic
