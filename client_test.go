package docscan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/emrgen/docscan/apis/v1"
	"github.com/emrgen/docscan/internal/cache"
	"github.com/emrgen/docscan/internal/dispatch"
	"github.com/emrgen/docscan/internal/export"
	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/ocr"
	"github.com/emrgen/docscan/internal/pipeline"
	"github.com/emrgen/docscan/internal/queue"
	"github.com/emrgen/docscan/internal/server"
	"github.com/emrgen/docscan/internal/service"
	"github.com/emrgen/docscan/internal/store"
	"github.com/emrgen/docscan/internal/tester"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()
	tester.RemoveDBFile()

	os.Exit(code)
}

func newTestClient(t *testing.T) Client {
	blobs := tester.Blobs()
	gormStore := store.NewGormStore(tester.TestDB())
	engine := ocr.NewStaticEngine(ocr.Result{Text: "client text"})
	docs := service.NewDocumentService(gormStore, blobs, cache.NewNopDocumentCache(), queue.NewNop())

	s := server.New(server.Deps{
		Documents:  docs,
		Signatures: service.NewSignatureService(gormStore, blobs),
		Scanner:    pipeline.NewScanner(docs, blobs, engine, nil, nil, pipeline.Config{}),
		Exporter:   export.NewExporter(t.TempDir(), blobs, engine, ocr.LanguageLatin, nil),
		Dispatcher: dispatch.NewDispatcher(dispatch.Config{}, nil),
		Blobs:      blobs,
		ShareDir:   t.TempDir(),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writePage(t *testing.T, dir, name string) string {
	img := image.NewGray(image.Rect(0, 0, 32, 24))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	data, err := imaging.EncodePNG(img)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestBaseURL(t *testing.T) {
	for addr, want := range map[string]string{
		"4020":                  "http://localhost:4020",
		"scanner.local:8080":    "http://scanner.local:8080",
		"https://docs.example/": "https://docs.example",
	} {
		got, err := baseURL(addr)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := baseURL(" ")
	assert.Error(t, err)
}

func TestClient_DocumentLifecycle(t *testing.T) {
	ctx := context.TODO()
	c := newTestClient(t)
	dir := t.TempDir()

	scanned, err := c.ScanDocument(ctx, "Client scan", writePage(t, dir, "a.png"), writePage(t, dir, "b.png"))
	require.NoError(t, err)
	require.NotNil(t, scanned.Document)
	assert.Equal(t, "succeeded", scanned.Status)
	id := scanned.Document.ID

	appended, err := c.AddPages(ctx, id, writePage(t, dir, "c.png"))
	require.NoError(t, err)
	assert.Equal(t, 3, appended.Document.PageCount)

	docs, err := c.ListDocuments(ctx, "client scan")
	require.NoError(t, err)
	if assert.Len(t, docs, 1) {
		assert.Equal(t, id, docs[0].ID)
	}

	name := "Renamed"
	doc, err := c.UpdateDocument(ctx, id, v1.UpdateDocumentRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Name)

	doc, err = c.DeletePage(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)

	exported, err := c.ExportDocument(ctx, id, v1.ExportRequest{Format: "txt"})
	require.NoError(t, err)
	require.Len(t, exported.Artifacts, 1)
	assert.Equal(t, "Renamed.txt", exported.Artifacts[0])

	var buf bytes.Buffer
	require.NoError(t, c.DownloadArtifact(ctx, id, exported.Artifacts[0], &buf))
	assert.Equal(t, "client text"+export.PageSeparator+"client text", buf.String())

	require.NoError(t, c.DeleteDocument(ctx, id))

	_, err = c.GetDocument(ctx, id)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, service.ErrDocumentNotFound.Error(), apiErr.Message)
}

func TestClient_ExportFailureIsAnOutcome(t *testing.T) {
	ctx := context.TODO()
	c := newTestClient(t)

	scanned, err := c.ScanDocument(ctx, "", writePage(t, t.TempDir(), "a.png"))
	require.NoError(t, err)

	res, err := c.ExportDocument(ctx, scanned.Document.ID, v1.ExportRequest{Format: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Status)
	assert.NotEmpty(t, res.Errors)
}

func TestClient_Signatures(t *testing.T) {
	ctx := context.TODO()
	c := newTestClient(t)
	dir := t.TempDir()

	first, err := c.CreateSignature(ctx, "Mine", writePage(t, dir, "sig1.png"), false)
	require.NoError(t, err)
	second, err := c.CreateSignature(ctx, "Other", writePage(t, dir, "sig2.png"), true)
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	sig, err := c.SetDefaultSignature(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, sig.IsDefault)

	sigs, err := c.ListSignatures(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, s := range sigs {
		if s.IsDefault {
			defaults++
			assert.Equal(t, first.ID, s.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	require.NoError(t, c.DeleteSignature(ctx, second.ID))
	assert.Error(t, c.DeleteSignature(ctx, second.ID))
}
