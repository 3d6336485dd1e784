package models

// Metadata keys and values shared by documents and their chunks.
const (
	MetaDisease = "disease"
	MetaType    = "type"
	MetaSource  = "source"
	MetaPaperID = "paper_id"

	DocTypeClinicalInfo  = "clinical_info"
	DocTypeResearchPaper = "research_paper"

	SourceOrphanet = "Orphanet"
	SourcePubMed   = "PubMed"
)

// Document is a flat text rendering of a disease record or a single paper,
// ready for chunking and embedding.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Chunk is a sub-span of a Document's text together with its embedding.
// Metadata is inherited from the parent Document unchanged.
type Chunk struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// ScoredChunk is a retrieval hit with its similarity score.
type ScoredChunk struct {
	Chunk
	Score float64
}
