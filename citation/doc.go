// Package citation implements the Citation Ledger: an append-only provenance
// record mapping claims to supporting sources and credibility scores.
// Citations are never mutated after insertion; provenance chains are queried
// ordered by retrieval timestamp. Credibility scoring policy belongs to the
// caller; the ledger only stores and indexes the score.
package citation
