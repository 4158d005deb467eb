package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	v1 "github.com/emrgen/docscan/apis/v1"
	"github.com/emrgen/docscan/internal/dispatch"
	"github.com/emrgen/docscan/internal/export"
	"github.com/emrgen/docscan/internal/imaging"
	"github.com/emrgen/docscan/internal/model"
	"github.com/emrgen/docscan/internal/report"
	"github.com/emrgen/docscan/internal/service"
)

// errBadRequest marks request errors detected by the handlers themselves.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, v1.ErrorResponse{Error: msg})
}

// writeErr answers with the status matching err.
func writeErr(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("internal error: %v", err)
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrSignatureNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrInvalidPageMove),
		errors.Is(err, service.ErrEmptyTag),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, imaging.ErrEmptyImage),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// outcomeStatus maps a batch outcome onto the response status.
func outcomeStatus(r *report.Report, ok int) int {
	switch r.Status() {
	case report.StatusSucceeded:
		return ok
	case report.StatusPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusUnprocessableEntity
	}
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("decode body: %v", err)
	}
	return validate.Struct(v)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func pathPageNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || n < 1 {
		return 0, badRequest("invalid page number %q", r.PathValue("number"))
	}
	return n, nil
}

func toDocument(doc *model.Document, withPages bool) v1.Document {
	out := v1.Document{
		ID:        doc.ID,
		Name:      doc.Name,
		PageCount: doc.PageCount,
		FullText:  doc.FullText,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if withPages {
		doc.SortPages()
		for _, page := range doc.Pages {
			out.Pages = append(out.Pages, v1.Page{
				ID:         page.ID,
				PageNumber: page.PageNumber,
				ImagePath:  page.ImagePath,
				OcrText:    page.OcrText,
			})
		}
	}
	return out
}

func toDocuments(docs []*model.Document) []v1.Document {
	out := make([]v1.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocument(doc, false))
	}
	return out
}

func toSignature(sig *model.Signature) v1.Signature {
	return v1.Signature{
		ID:        sig.ID,
		Name:      sig.Name,
		IsDefault: sig.IsDefault,
		CreatedAt: sig.CreatedAt,
	}
}

func toOutcome(r *report.Report) v1.Outcome {
	return v1.Outcome{
		Status:    string(r.Status()),
		Total:     r.Total,
		Succeeded: r.Succeeded,
		Errors:    r.Messages(),
	}
}

// toExportResponse lists artifacts by file name, relative to the export
// directory of the document.
func toExportResponse(res *export.Result) v1.ExportResponse {
	out := v1.ExportResponse{Artifacts: []string{}, Outcome: toOutcome(&res.Report)}
	for _, artifact := range res.Artifacts {
		out.Artifacts = append(out.Artifacts, filepath.Base(artifact))
	}
	return out
}

// exportFormat builds the export format from its wire form.
func exportFormat(req v1.ExportRequest) (export.Format, error) {
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	switch f := format.(type) {
	case export.PDF:
		f.BaseName = req.BaseName
		f.IncludeOCRText = req.IncludeOCRText
		return f, nil
	case export.JPEG:
		if req.Quality != nil {
			f.Quality = *req.Quality
		}
		return f, nil
	case export.TXT:
		f.BaseName = req.BaseName
		return f, nil
	case export.Spreadsheet:
		f.BaseName = req.BaseName
		f.PageNumber = req.PageNumber
		return f, nil
	default:
		return nil, export.ErrUnknownFormat
	}
}

// dispatchTarget builds a dispatch target from its wire form. Folder targets
// always write below the configured share directory.
func (s *Server) dispatchTarget(t v1.Target) (dispatch.Target, error) {
	switch t.Type {
	case "webhook":
		if t.URL == "" {
			return nil, badRequest("webhook target needs a url")
		}
		return dispatch.Webhook{URL: t.URL, Event: t.Event}, nil
	case "cloud_upload", "share":
		via, err := s.shareTarget(t.Via)
		if err != nil {
			return nil, err
		}
		if t.Type == "share" {
			return dispatch.Share{Via: via}, nil
		}
		return dispatch.CloudUpload{Via: via}, nil
	default:
		return nil, badRequest("unknown target type %q", t.Type)
	}
}

func (s *Server) shareTarget(via string) (dispatch.ShareTarget, error) {
	switch via {
	case "", "folder":
		if s.deps.ShareDir == "" {
			return nil, badRequest("folder share target is not configured")
		}
		return dispatch.NewFolderTarget(s.deps.ShareDir), nil
	case "queue":
		return dispatch.NewQueueTarget(s.deps.Publisher), nil
	default:
		return nil, badRequest("unknown share target %q", via)
	}
}
