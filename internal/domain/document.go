package domain

// Document is a fetched web page. It lives only for the duration of one
// ingestion run; persisted state belongs to the vector index.
type Document struct {
	SourceURL string
	HTML      string
	ImageURLs []string
}

// ChunkMetadata carries the caller-supplied metadata plus the fields the
// chunker assigns while splitting a document.
type ChunkMetadata struct {
	// Fields copied from the ingestion trigger (title, description, url,
	// project_id, ...). Values must be flat key/value pairs.
	Fields map[string]string

	ChunkIndex int
	Heading    string
	ParentTag  string
}

// Flatten merges the source fields and the chunker-assigned fields into a
// single flat record suitable for the vector index.
func (m ChunkMetadata) Flatten() map[string]any {
	out := make(map[string]any, len(m.Fields)+3)
	for k, v := range m.Fields {
		out[k] = v
	}
	out["chunk_index"] = m.ChunkIndex
	if m.Heading != "" {
		out["heading"] = m.Heading
	}
	if m.ParentTag != "" {
		out["parent_tag"] = m.ParentTag
	}
	return out
}

// Chunk is the unit of retrieval: a bounded span of document text with its
// metadata. Text is always non-empty after trimming.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}
