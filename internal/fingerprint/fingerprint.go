// Package fingerprint produces stable hashes of normalized SQL text for
// whitelist matching.
//
// Normalization collapses whitespace and lower-cases the statement, so two
// queries differing only in formatting or case hash identically. Literal
// values remain part of the hash: two queries differing only in a WHERE
// clause literal are distinct whitelist entries. Callers needing
// parameter-agnostic matching must pass the text through NormalizeLiterals
// before hashing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	whitespace = regexp.MustCompile(`\s+`)

	// literals matches single-quoted strings, bare numbers, and
	// double-quoted strings, in that order of preference.
	literals = regexp.MustCompile(`'[^']*'|\b\d+(?:\.\d+)?\b|"[^"]*"`)
)

// Normalize collapses all whitespace runs to single spaces, trims the ends,
// and lower-cases the statement.
func Normalize(sql string) string {
	s := whitespace.ReplaceAllString(sql, " ")
	s = strings.TrimSpace(s)
	return strings.ToLower(s)
}

// Hash returns the hex-encoded SHA-256 fingerprint of the normalized
// statement.
func Hash(sql string) string {
	sum := sha256.Sum256([]byte(Normalize(sql)))
	return hex.EncodeToString(sum[:])
}

// NormalizeLiterals replaces string and numeric literals with ? so that
// queries differing only in literal values hash identically. Opt-in: the
// whitelist default is per-exact-normalized-text.
func NormalizeLiterals(sql string) string {
	return literals.ReplaceAllString(sql, "?")
}
