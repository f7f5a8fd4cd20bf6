// Package drafting composes the post and its revisions.
//
// Every draft is cleaned the same way: trimmed, unwrapped from one pair of
// quotes, NFC-normalized, and fitted into MaxLength runes. A failed initial
// draft falls back to the summary plus a topic hashtag; a failed revision
// is an error so the reviewer's feedback is never silently dropped.
package drafting
