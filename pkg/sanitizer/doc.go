// Package sanitizer normalizes free text before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result
// as applying them once. Invalid input never produces an error; it is
// reduced to the closest clean string, possibly empty.
//
// Normalization includes:
//   - Single-line text (titles): control characters removed, whitespace collapsed, trimmed
//   - Multi-line text (descriptions, messages): line breaks kept, trailing spaces and runs of blank lines removed
//   - Identifiers: trimmed, inner whitespace removed
package sanitizer
