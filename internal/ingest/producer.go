// Package ingest is the producer side of the workflow handoff: it pairs a
// discovered document with its parsed-text sidecar and stores the context
// blob the orchestrator consumes after navigation.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/handoff"
)

// Producer turns document paths into handoff blobs.
type Producer struct {
	store  handoff.Store
	logger *slog.Logger
}

func NewProducer(store handoff.Store, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{store: store, logger: logger}
}

// Produce reads the document at path, resolves its parsed text and folder,
// and stores the handoff blob. Returns the document id to hand to the
// orchestrator.
//
// Parsing itself belongs to the ingestion collaborator; here the parse
// output is expected as a "<path>.txt" sidecar (plain .txt documents are
// their own parse output). The folder name is the parent directory's base
// name.
func (p *Producer) Produce(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat document: %w", err)
	}

	text, method, err := parsedText(path)
	if err != nil {
		p.logger.Error("ingest.parse_sidecar_missing", "path", path, "error", err)
		return "", err
	}

	docID := documentID(path)
	doc := entity.Document{
		ID:          docID,
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FolderName:  filepath.Base(filepath.Dir(path)),
		ContentType: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		SourcePath:  path,
		UploadedAt:  info.ModTime().UTC(),
	}

	blob := handoff.Blob{
		Document:   doc,
		Parse:      entity.ParseOutput{Text: text, Method: method},
		FolderName: doc.FolderName,
		StoredAt:   time.Now().UTC(),
	}
	if err := p.store.Put(ctx, docID, blob); err != nil {
		p.logger.Error("ingest.handoff_put_failed", "document_id", docID, "error", err)
		return "", err
	}

	p.logger.Info("ingest.handoff_ready",
		"document_id", docID,
		"document", doc.Name,
		"folder", doc.FolderName,
		"text_len", len(text),
	)
	return docID, nil
}

// Run consumes watcher events until ctx is done, producing a handoff blob
// per discovered document and reporting ids on the returned channel.
func (p *Producer) Run(ctx context.Context, paths <-chan string) <-chan string {
	ids := make(chan string, 64)
	go func() {
		defer close(ids)
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-paths:
				if !ok {
					return
				}
				id, err := p.Produce(ctx, path)
				if err != nil {
					continue
				}
				select {
				case ids <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ids
}

func parsedText(path string) (string, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return string(b), "plain-text", nil
	}
	b, err := os.ReadFile(path + ".txt")
	if err != nil {
		return "", "", fmt.Errorf("no parse sidecar for %s: %w", filepath.Base(path), err)
	}
	return string(b), "sidecar", nil
}

// documentID is stable per source path, so re-discovering a document
// replaces its pending handoff instead of duplicating it.
func documentID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:16])
}
