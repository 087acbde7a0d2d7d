package domain

import "sort"

// Match is a single retrieval result. Scores are comparable only within the
// same query; the scale depends on the embedding model and distance metric.
type Match struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	Namespace     string  `json:"namespace"`
	Source        string  `json:"source"`
	Content       string  `json:"content"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float64 `json:"score"`
}

// RetrievalOptions configures a retrieval request.
type RetrievalOptions struct {
	TopK           int     `json:"top_k"`
	Namespace      string  `json:"namespace"`
	MaxPerDocument int     `json:"max_per_document"` // 0 means no cap
	MinScore       float64 `json:"min_score"`
}

// Retrieval bounds and defaults.
const (
	DefaultTopK           = 5
	MinTopK               = 1
	MaxTopK               = 10
	DefaultMaxPerDocument = 2
	DefaultMinScore       = 0.3
)

// DefaultRetrievalOptions returns sensible defaults.
func DefaultRetrievalOptions() RetrievalOptions {
	return RetrievalOptions{
		TopK:           DefaultTopK,
		Namespace:      DefaultNamespace,
		MaxPerDocument: DefaultMaxPerDocument,
		MinScore:       DefaultMinScore,
	}
}

// SortMatches orders matches by descending score. Ties break on the lower
// sequence index so results are deterministic across runs.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].SequenceIndex < matches[j].SequenceIndex
	})
}

// CapPerDocument drops matches beyond the first maxPerDoc for each document,
// preserving the input order. A maxPerDoc <= 0 disables the cap. This keeps
// one long document from dominating the synthesis context.
func CapPerDocument(matches []Match, maxPerDoc int) []Match {
	if maxPerDoc <= 0 {
		return matches
	}

	counts := make(map[string]int, len(matches))
	capped := make([]Match, 0, len(matches))
	for _, m := range matches {
		if counts[m.DocumentID] >= maxPerDoc {
			continue
		}
		counts[m.DocumentID]++
		capped = append(capped, m)
	}
	return capped
}
