package server

import (
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/emrgen/docscan/apis/v1"
	"github.com/emrgen/docscan/internal/capture"
	"github.com/emrgen/docscan/internal/dispatch"
	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/pipeline"
	"github.com/emrgen/docscan/internal/service"
)

// scanDocument runs the uploaded pages through the scan pipeline and stores
// them as a new document.
func (s *Server) scanDocument(w http.ResponseWriter, r *http.Request) {
	frames, err := uploadedFrames(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	res := s.deps.Scanner.Scan(r.Context(), r.FormValue("name"), frames)
	writeJSON(w, outcomeStatus(&res.Report, http.StatusCreated), toScanResponse(res))
}

// addPages scans the uploaded pages and appends them to the document.
func (s *Server) addPages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	frames, err := uploadedFrames(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	res, err := s.deps.Scanner.Append(r.Context(), id, frames)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, outcomeStatus(&res.Report, http.StatusOK), toScanResponse(res))
}

func toScanResponse(res *pipeline.ScanResult) v1.ScanResponse {
	out := v1.ScanResponse{Skipped: res.Skipped, Outcome: toOutcome(&res.Report)}
	if res.Document != nil {
		doc := toDocument(res.Document, true)
		out.Document = &doc
	}
	return out
}

// uploadedFrames decodes the "pages" files of a multipart request in order.
func uploadedFrames(r *http.Request) ([]capture.Frame, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, badRequest("parse multipart form: %v", err)
	}

	files := r.MultipartForm.File["pages"]
	if len(files) == 0 {
		return nil, badRequest("no pages uploaded")
	}

	frames := make([]capture.Frame, 0, len(files))
	for _, header := range files {
		img, err := decodeUpload(header)
		if err != nil {
			return nil, badRequest("page %s: %v", header.Filename, err)
		}
		frames = append(frames, capture.Frame{Image: img})
	}

	return frames, nil
}

func decodeUpload(header *multipart.FileHeader) (image.Image, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return imaging.Decode(file)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Documents.SearchDocuments(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v1.ListDocumentsResponse{Documents: toDocuments(docs)})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	doc, err := s.deps.Documents.GetDocument(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDocument(doc, true))
}

// updateDocument renames the document and/or adds a tag.
func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req v1.UpdateDocumentRequest
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Name == nil && req.Tag == nil {
		writeErr(w, badRequest("nothing to update"))
		return
	}

	doc, err := s.deps.Documents.GetDocument(r.Context(), id)
	if err == nil && req.Name != nil {
		doc, err = s.deps.Documents.RenameDocument(r.Context(), id, *req.Name)
	}
	if err == nil && req.Tag != nil {
		doc, err = s.deps.Documents.AddTag(r.Context(), id, *req.Tag)
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDocument(doc, true))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := s.deps.Documents.DeleteDocument(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// updatePage replaces the text of a page and/or moves it to another position.
func (s *Server) updatePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	number, err := pathPageNumber(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req v1.UpdatePageRequest
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Text == nil && req.MoveTo == nil {
		writeErr(w, badRequest("nothing to update"))
		return
	}

	ctx := r.Context()
	doc, err := s.deps.Documents.GetDocument(ctx, id)
	if err == nil && req.Text != nil {
		doc, err = s.deps.Documents.UpdatePageText(ctx, id, number, *req.Text)
	}
	if err == nil && req.MoveTo != nil {
		doc, err = s.deps.Documents.MovePage(ctx, id, number, *req.MoveTo)
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDocument(doc, true))
}

func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	number, err := pathPageNumber(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	doc, err := s.deps.Documents.DeletePage(r.Context(), id, number)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDocument(doc, true))
}

// pageImage answers with the stored PNG raster of one page.
func (s *Server) pageImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	number, err := pathPageNumber(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	doc, err := s.deps.Documents.GetDocument(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	for _, page := range doc.Pages {
		if page.PageNumber != number {
			continue
		}
		data, err := s.deps.Blobs.Get(page.ImagePath)
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
		return
	}

	writeErr(w, service.ErrPageNotFound)
}

func (s *Server) exportDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req v1.ExportRequest
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	format, err := exportFormat(req)
	if err != nil {
		writeErr(w, err)
		return
	}

	doc, err := s.deps.Documents.GetDocument(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	res := s.deps.Exporter.Export(r.Context(), doc, format)
	writeJSON(w, outcomeStatus(&res.Report, http.StatusOK), toExportResponse(res))
}

// exportArtifact downloads one artifact written by an earlier export.
func (s *Server) exportArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	name := r.PathValue("file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeErr(w, badRequest("invalid artifact name %q", name))
		return
	}

	path := filepath.Join(s.deps.Exporter.Dir(), id.String(), name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("artifact %s not found", name))
		return
	}

	http.ServeFile(w, r, path)
}

// dispatchDocument exports the document and forwards the artifacts to every
// target. A failed target never stops the others.
func (s *Server) dispatchDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req v1.DispatchRequest
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	format, err := exportFormat(req.Export)
	if err != nil {
		writeErr(w, err)
		return
	}

	targets := make([]dispatch.Target, 0, len(req.Targets))
	for _, t := range req.Targets {
		target, err := s.dispatchTarget(t)
		if err != nil {
			writeErr(w, err)
			return
		}
		targets = append(targets, target)
	}

	ctx := r.Context()
	doc, err := s.deps.Documents.GetDocument(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}

	exported := s.deps.Exporter.Export(ctx, doc, format)
	resp := v1.DispatchResponse{Export: toExportResponse(exported)}
	if len(exported.Artifacts) == 0 {
		resp.Dispatch = v1.Outcome{Status: "failed"}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	dispatched := s.deps.Dispatcher.Dispatch(ctx, dispatch.Request{
		Document:  doc,
		Format:    format.Name(),
		Artifacts: exported.Artifacts,
	}, targets...)
	resp.Dispatch = toOutcome(&dispatched.Report)

	combined := exported.Report
	combined.Merge(dispatched.Report)
	writeJSON(w, outcomeStatus(&combined, http.StatusOK), resp)
}
