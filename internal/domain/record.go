package domain

// ContentRecord is a single upstream post.
type ContentRecord struct {
	KOLID         string `json:"kol_id"`
	DocID         string `json:"doc_id"`
	PostURL       string `json:"post_url"`
	Content       string `json:"content"`
	ReactionCount int64  `json:"reaction_count"`
	ShareCount    int64  `json:"share_count"`
	Timestamp     *int64 `json:"timestamp,omitempty"`
	Source        string `json:"source,omitempty"`
}

// MetadataRecord describes an account (KOL).
type MetadataRecord struct {
	KOLID   string `json:"kol_id"`
	KOLName string `json:"kol_name"`
	Tag     string `json:"tag"`
}

// JoinedRecord is a content record left-joined with its account metadata.
// Meta is nil when no metadata row matched.
type JoinedRecord struct {
	ContentRecord
	Meta *MetadataRecord
}

// EnrichedRecord is the presentation schema of a pipeline row.
type EnrichedRecord struct {
	Index         int    `json:"index"`
	KOLName       string `json:"kol_name"`
	PostURL       string `json:"post_url"`
	Content       string `json:"content"`
	ReactionCount int64  `json:"reaction_count"`
	ShareCount    int64  `json:"share_count"`
	CreatedTime   string `json:"created_time"`
}

// EnrichResult is the output of one pipeline run.
type EnrichResult struct {
	Records  []EnrichedRecord `json:"records"`
	Document string           `json:"document"`
	Message  *Message         `json:"message,omitempty"`
}
