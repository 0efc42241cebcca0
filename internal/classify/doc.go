// Package classify implements sift's two-tier importance classification: a
// deterministic, pattern-based heuristic scorer, and an LLM-backed classifier
// that delegates to the heuristic on any transport or parse failure. Results
// carry their provenance so callers can tell which tier produced them.
package classify
