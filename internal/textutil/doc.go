// Package textutil provides text helpers shared across the pipeline:
// filename sanitization for subtitle artifacts and token-based title
// similarity used to corroborate recognition results.
//
// Tokenization lowercases text, splits on non-alphanumeric characters,
// and filters tokens shorter than 3 characters.
package textutil
