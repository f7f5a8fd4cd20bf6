// Package textutil provides the text helpers shared by the drafting and
// summarizing stages: rune-aware truncation, wrapping quote removal, Unicode
// normalization, hashtag derivation, and display labels.
//
// All length limits count runes after NFC normalization, which is how the
// publishing service counts characters for plain text.
package textutil
