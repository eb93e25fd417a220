package knowledge

import "time"

// Metadata keys carried by ingested documents. Provenance comes from the
// scraping layer, which deposits the raw files this system indexes.
const (
	MetaSource   = "source"
	MetaType     = "type"
	MetaTitle    = "title"
	MetaDate     = "date"
	MetaCategory = "category"
	MetaRegion   = "region"
	MetaLanguage = "language"
)

// Document is the unit of ingestion and retrieval. A raw source file
// becomes one Document; splitting produces Document-shaped chunks that
// inherit the parent's metadata.
// Metadata must be map[string]string to comply with chromem-go.
type Document struct {
	ID       string            // Unique identifier
	Content  string            // Text content
	Metadata map[string]string // Provenance (source, type, ...)
	CreateAt time.Time         // Creation timestamp
}

// Result is a single search result with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity (0-1)
}
