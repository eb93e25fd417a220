package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

// Layout of the collected corpus under the data directory.
// Plain-text extractions live in extracted_text, scraped web pages as
// JSON records in web_content.
const (
	textDirName = "extracted_text"
	webDirName  = "web_content"
)

// webRecord is the on-disk shape of one scraped page.
type webRecord struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	SourceURL string         `json:"source_url"`
}

// LoadDocuments reads the corpus from dataDir and returns one document per
// usable file. A missing subdirectory contributes nothing; unreadable or
// malformed files are logged and skipped so one bad scrape cannot sink an
// ingestion run. Documents whose content is blank are dropped.
func LoadDocuments(dataDir string, logger *slog.Logger) ([]knowledge.Document, error) {
	var docs []knowledge.Document

	textDocs, err := loadTextFiles(filepath.Join(dataDir, textDirName), logger)
	if err != nil {
		return nil, err
	}
	docs = append(docs, textDocs...)

	webDocs, err := loadWebFiles(filepath.Join(dataDir, webDirName), logger)
	if err != nil {
		return nil, err
	}
	docs = append(docs, webDocs...)

	logger.Info("loaded documents", "count", len(docs), "data_dir", dataDir)
	return docs, nil
}

// loadTextFiles reads every .txt file in dir as a single document.
func loadTextFiles(dir string, logger *slog.Logger) ([]knowledge.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading text directory: %w", err)
	}

	var docs []knowledge.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Error("reading text file", "path", path, "error", err)
			continue
		}
		text := string(content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, knowledge.Document{
			ID:      generateDocID(entry.Name()),
			Content: text,
			Metadata: map[string]string{
				knowledge.MetaSource: entry.Name(),
				knowledge.MetaType:   "txt",
			},
			CreateAt: time.Now(),
		})
	}
	return docs, nil
}

// loadWebFiles reads every .json file in dir as one scraped-page record.
// The record's own metadata keys pass through; source and type are always
// set, with source_url preferred over the filename.
func loadWebFiles(dir string, logger *slog.Logger) ([]knowledge.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading web directory: %w", err)
	}

	var docs []knowledge.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Error("reading web record", "path", path, "error", err)
			continue
		}

		var rec webRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Error("decoding web record", "path", path, "error", err)
			continue
		}
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}

		metadata := make(map[string]string, len(rec.Metadata)+2)
		for k, v := range rec.Metadata {
			metadata[k] = metadataString(v)
		}
		source := rec.SourceURL
		if source == "" {
			source = entry.Name()
		}
		metadata[knowledge.MetaSource] = source
		metadata[knowledge.MetaType] = "json"

		docs = append(docs, knowledge.Document{
			ID:       generateDocID(source),
			Content:  rec.Content,
			Metadata: metadata,
			CreateAt: time.Now(),
		})
	}
	return docs, nil
}

// metadataString flattens a JSON metadata value to a string.
func metadataString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// generateDocID derives a stable document ID from the source name.
func generateDocID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "doc_" + hex.EncodeToString(hash[:16])
}
