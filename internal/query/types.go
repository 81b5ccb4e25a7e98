// Package query implements the conversational query engine: it wires
// hybrid retrieval, conversation sessions, query reformulation, and
// answer generation into the operations the CLI exposes.
package query

import (
	"github.com/medleyre/leasehound/internal/search"
)

// AnswerResult is the outcome of a successful Query or Chat call.
type AnswerResult struct {
	// Answer is the generated natural-language answer.
	Answer string `json:"answer"`

	// SupportingChunkIDs identify the passages the answer was grounded
	// in, in fused rank order.
	SupportingChunkIDs []string `json:"supporting_chunk_ids"`

	// UsedQuery is the query actually sent to retrieval. For a fresh
	// session or a standalone question this equals the utterance.
	UsedQuery string `json:"used_query"`

	// ActiveEntity is the tenant the conversation is focused on, empty
	// when unfocused.
	ActiveEntity string `json:"active_entity,omitempty"`

	// SessionID identifies the conversation, set by Chat only.
	SessionID string `json:"session_id,omitempty"`

	// Suggestions are follow-up questions about unexplored topics,
	// set by Chat only.
	Suggestions []string `json:"suggestions,omitempty"`
}

// QueryOptions tunes a one-shot query.
type QueryOptions struct {
	// TopN overrides the configured passage count when positive.
	TopN int

	// Tenant restricts retrieval to one tenant's lease when set.
	Tenant string

	// Mode selects the retrieval sources for Search. Empty means hybrid.
	Mode search.Mode
}

// Comparison is the outcome of a CompareTenants call.
type Comparison struct {
	Answer  string                      `json:"answer"`
	Sources map[string][]*search.Result `json:"-"`
}

// Stats summarizes engine state for diagnostics.
type Stats struct {
	ChunkCount   int      `json:"chunk_count"`
	LexicalCount int      `json:"lexical_count"`
	VectorCount  int      `json:"vector_count"`
	Tenants      []string `json:"tenants"`
	SessionCount int      `json:"session_count"`
}
