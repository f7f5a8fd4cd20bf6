// Package ranking reduces the researched candidates to the top K.
//
// Each candidate's combined score blends model-judged relevance (weight 0.6)
// with engagement normalized against the best candidate (weight 0.4). Only
// the first RelevanceCap candidates are shown to the model; the rest, and any
// candidate the model skips, receive the neutral relevance 0.5. When the
// model cannot be used at all every candidate is neutral, so ranking falls
// back to pure engagement order. Ranking never fails.
package ranking
