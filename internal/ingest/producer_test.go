package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docuflow/internal/handoff"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProduce_PDFWithSidecar(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "Invoices", "invoice-001.pdf")
	writeFile(t, docPath, "%PDF-raw-bytes")
	writeFile(t, docPath+".txt", "parsed invoice text")

	store := handoff.NewMemoryStore()
	p := NewProducer(store, nil)

	id, err := p.Produce(context.Background(), docPath)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	blob, err := store.Take(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "invoice-001", blob.Document.Name)
	assert.Equal(t, "Invoices", blob.Document.FolderName)
	assert.Equal(t, "Invoices", blob.FolderName)
	assert.Equal(t, "pdf", blob.Document.ContentType)
	assert.Equal(t, "parsed invoice text", blob.Parse.Text)
	assert.Equal(t, "sidecar", blob.Parse.Method)
}

func TestProduce_PlainTextIsItsOwnParse(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "Notes", "memo.txt")
	writeFile(t, docPath, "memo body")

	store := handoff.NewMemoryStore()
	p := NewProducer(store, nil)

	id, err := p.Produce(context.Background(), docPath)
	require.NoError(t, err)

	blob, err := store.Take(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "memo body", blob.Parse.Text)
	assert.Equal(t, "plain-text", blob.Parse.Method)
}

func TestProduce_MissingSidecarFails(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "Invoices", "invoice-002.pdf")
	writeFile(t, docPath, "%PDF")

	p := NewProducer(handoff.NewMemoryStore(), nil)
	_, err := p.Produce(context.Background(), docPath)
	require.Error(t, err)
}

func TestProduce_StableIDReplacesPendingHandoff(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "Invoices", "invoice-003.pdf")
	writeFile(t, docPath, "%PDF")
	writeFile(t, docPath+".txt", "first parse")

	store := handoff.NewMemoryStore()
	p := NewProducer(store, nil)

	id1, err := p.Produce(context.Background(), docPath)
	require.NoError(t, err)

	writeFile(t, docPath+".txt", "second parse")
	id2, err := p.Produce(context.Background(), docPath)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same path yields the same id")

	blob, err := store.Take(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, "second parse", blob.Parse.Text)

	_, err = store.Take(context.Background(), id2)
	assert.Error(t, err, "only one pending handoff per document")
}

func TestRun_ProducesIDsAndSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "Invoices", "good.pdf")
	writeFile(t, good, "%PDF")
	writeFile(t, good+".txt", "parsed")
	bad := filepath.Join(dir, "Invoices", "bad.pdf")
	writeFile(t, bad, "%PDF") // no sidecar

	store := handoff.NewMemoryStore()
	p := NewProducer(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths := make(chan string, 2)
	paths <- bad
	paths <- good
	close(paths)

	var ids []string
	for id := range p.Run(ctx, paths) {
		ids = append(ids, id)
	}
	require.Len(t, ids, 1, "the document without a sidecar is skipped")

	blob, err := store.Take(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "good", blob.Document.Name)
}
