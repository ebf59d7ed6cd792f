package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/enrich"
	"github.com/clarkhq/clark/internal/index"
	"github.com/clarkhq/clark/internal/metrics"
	"github.com/clarkhq/clark/internal/models"
	"github.com/clarkhq/clark/internal/parser"
)

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	DocumentID int64
	Filename   string
	Chunks     int
}

// IngestService runs the ingestion pipeline: extract, chunk, enrich, index,
// register.
type IngestService struct {
	db        *db.Client
	enricher  *enrich.Enricher
	hybrid    *index.HybridIndex
	collector *metrics.Collector
	chunkCfg  parser.ChunkConfig
}

// NewIngestService creates an ingestion service.
func NewIngestService(client *db.Client, enricher *enrich.Enricher, hybrid *index.HybridIndex, collector *metrics.Collector, chunkCfg parser.ChunkConfig) *IngestService {
	return &IngestService{
		db:        client,
		enricher:  enricher,
		hybrid:    hybrid,
		collector: collector,
		chunkCfg:  chunkCfg,
	}
}

// IngestText pushes already-extracted text through the pipeline and
// registers the document. fileURL records where the source lives; it may
// be empty for inline uploads.
func (s *IngestService) IngestText(ctx context.Context, spaceID int64, filename, fileType, fileURL, text string) (*IngestResult, error) {
	chunks := parser.ChunkText(text, s.chunkCfg)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s: no content to index", filename)
	}

	docID, err := s.db.CreateDocument(ctx, models.DocumentInput{
		SpaceID:  spaceID,
		Filename: filename,
		FileType: fileType,
		FileURL:  fileURL,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	enriched, err := s.enricher.Enrich(ctx, text, chunks)
	s.collector.RecordTiming(metrics.OpEnrich, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", filename, err)
	}

	start = time.Now()
	if err := s.hybrid.Add(ctx, spaceID, docID, filename, enriched); err != nil {
		return nil, fmt.Errorf("index %s: %w", filename, err)
	}
	s.collector.RecordTiming(metrics.OpEmbedding, time.Since(start))

	slog.Info("document ingested", "space_id", spaceID, "document_id", docID, "filename", filename, "chunks", len(enriched))
	return &IngestResult{DocumentID: docID, Filename: filename, Chunks: len(enriched)}, nil
}

// IngestURL downloads a document, extracts its text, and ingests it.
func (s *IngestService) IngestURL(ctx context.Context, spaceID int64, rawURL string) (*IngestResult, error) {
	text, err := parser.FetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	filename := filenameFromURL(rawURL)
	return s.IngestText(ctx, spaceID, filename, fileType(filename), rawURL, text)
}

// IngestFile reads a local file, extracts its text, and ingests it.
func (s *IngestService) IngestFile(ctx context.Context, spaceID int64, filePath string) (*IngestResult, error) {
	filename := path.Base(filePath)

	var text string
	var err error
	if strings.EqualFold(path.Ext(filePath), ".pdf") {
		text, err = parser.ExtractPDF(filePath)
	} else {
		var data []byte
		data, err = os.ReadFile(filePath)
		text = string(data)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	return s.IngestText(ctx, spaceID, filename, fileType(filename), filePath, text)
}

func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || path.Base(parsed.Path) == "/" || path.Base(parsed.Path) == "." {
		return rawURL
	}
	name, err := url.PathUnescape(path.Base(parsed.Path))
	if err != nil {
		return path.Base(parsed.Path)
	}
	return name
}

func fileType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}
