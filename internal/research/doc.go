// Package research plans where to look for a topic and gathers candidates.
//
// The model proposes a strategy (origins, search phrase, recency window).
// When it cannot, a static topic table supplies the origins. Origins are
// fetched concurrently and merged in strategy order, so the same inputs
// always yield the same candidate list. Candidates are deduplicated by id
// and ordered by engagement before they are persisted.
package research
