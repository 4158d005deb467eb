package docscan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	v1 "github.com/emrgen/docscan/apis/v1"
)

// Client talks to a docscan server over its HTTP API.
type Client interface {
	io.Closer

	ScanDocument(ctx context.Context, name string, pages ...string) (*v1.ScanResponse, error)
	AddPages(ctx context.Context, id string, pages ...string) (*v1.ScanResponse, error)
	ListDocuments(ctx context.Context, query string) ([]v1.Document, error)
	GetDocument(ctx context.Context, id string) (*v1.Document, error)
	UpdateDocument(ctx context.Context, id string, req v1.UpdateDocumentRequest) (*v1.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	UpdatePage(ctx context.Context, id string, number int, req v1.UpdatePageRequest) (*v1.Document, error)
	DeletePage(ctx context.Context, id string, number int) (*v1.Document, error)
	ExportDocument(ctx context.Context, id string, req v1.ExportRequest) (*v1.ExportResponse, error)
	DownloadArtifact(ctx context.Context, id, name string, w io.Writer) error
	DispatchDocument(ctx context.Context, id string, req v1.DispatchRequest) (*v1.DispatchResponse, error)

	CreateSignature(ctx context.Context, name, imagePath string, makeDefault bool) (*v1.Signature, error)
	ListSignatures(ctx context.Context) ([]v1.Signature, error)
	SetDefaultSignature(ctx context.Context, id string) (*v1.Signature, error)
	DeleteSignature(ctx context.Context, id string) error
}

// APIError is a non-success answer of the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docscan: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// batch endpoints answer partial and failed outcomes with a regular body
var batchStatuses = []int{http.StatusOK, http.StatusCreated, http.StatusMultiStatus, http.StatusUnprocessableEntity}

type client struct {
	baseURL string
	http    *http.Client
}

// NewClient connects to addr, either a port, host:port or a full URL.
func NewClient(addr string) (Client, error) {
	base, err := baseURL(addr)
	if err != nil {
		return nil, err
	}

	return &client{
		baseURL: base,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func baseURL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("docscan: empty server address")
	}
	if _, err := strconv.Atoi(addr); err == nil {
		addr = "localhost:" + addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("docscan: invalid server address: %w", err)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (c *client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *client) ScanDocument(ctx context.Context, name string, pages ...string) (*v1.ScanResponse, error) {
	body, contentType, err := multipartFiles(map[string]string{"name": name}, "pages", pages...)
	if err != nil {
		return nil, err
	}

	var out v1.ScanResponse
	if err := c.do(ctx, http.MethodPost, "/v1/documents", body, contentType, &out, batchStatuses...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) AddPages(ctx context.Context, id string, pages ...string) (*v1.ScanResponse, error) {
	body, contentType, err := multipartFiles(nil, "pages", pages...)
	if err != nil {
		return nil, err
	}

	var out v1.ScanResponse
	if err := c.do(ctx, http.MethodPost, documentPath(id, "pages"), body, contentType, &out, batchStatuses...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ListDocuments(ctx context.Context, query string) ([]v1.Document, error) {
	path := "/v1/documents"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}

	var out v1.ListDocumentsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *client) GetDocument(ctx context.Context, id string) (*v1.Document, error) {
	var out v1.Document
	if err := c.do(ctx, http.MethodGet, documentPath(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) UpdateDocument(ctx context.Context, id string, req v1.UpdateDocumentRequest) (*v1.Document, error) {
	var out v1.Document
	if err := c.doJSON(ctx, http.MethodPatch, documentPath(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, documentPath(id), nil, "", nil, http.StatusNoContent)
}

func (c *client) UpdatePage(ctx context.Context, id string, number int, req v1.UpdatePageRequest) (*v1.Document, error) {
	var out v1.Document
	if err := c.doJSON(ctx, http.MethodPut, documentPath(id, "pages", strconv.Itoa(number)), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DeletePage(ctx context.Context, id string, number int) (*v1.Document, error) {
	var out v1.Document
	if err := c.do(ctx, http.MethodDelete, documentPath(id, "pages", strconv.Itoa(number)), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ExportDocument(ctx context.Context, id string, req v1.ExportRequest) (*v1.ExportResponse, error) {
	var out v1.ExportResponse
	if err := c.doJSON(ctx, http.MethodPost, documentPath(id, "export"), req, &out, batchStatuses...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DownloadArtifact(ctx context.Context, id, name string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+documentPath(id, "exports", name), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *client) DispatchDocument(ctx context.Context, id string, req v1.DispatchRequest) (*v1.DispatchResponse, error) {
	var out v1.DispatchResponse
	if err := c.doJSON(ctx, http.MethodPost, documentPath(id, "dispatch"), req, &out, batchStatuses...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) CreateSignature(ctx context.Context, name, imagePath string, makeDefault bool) (*v1.Signature, error) {
	fields := map[string]string{
		"name":    name,
		"default": strconv.FormatBool(makeDefault),
	}
	body, contentType, err := multipartFiles(fields, "image", imagePath)
	if err != nil {
		return nil, err
	}

	var out v1.Signature
	if err := c.do(ctx, http.MethodPost, "/v1/signatures", body, contentType, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ListSignatures(ctx context.Context) ([]v1.Signature, error) {
	var out []v1.Signature
	if err := c.do(ctx, http.MethodGet, "/v1/signatures", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SetDefaultSignature(ctx context.Context, id string) (*v1.Signature, error) {
	var out v1.Signature
	if err := c.do(ctx, http.MethodPut, "/v1/signatures/"+url.PathEscape(id)+"/default", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DeleteSignature(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/signatures/"+url.PathEscape(id), nil, "", nil, http.StatusNoContent)
}

func (c *client) doJSON(ctx context.Context, method, path string, in, out any, accept ...int) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json", out, accept...)
}

// do sends one request and decodes the answer into out. accept lists the
// statuses treated as success, 200 when empty.
func (c *client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any, accept ...int) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if len(accept) == 0 {
		accept = []int{http.StatusOK}
	}
	ok := false
	for _, status := range accept {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		return apiError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body v1.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

func documentPath(id string, parts ...string) string {
	path := "/v1/documents/" + url.PathEscape(id)
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

// multipartFiles builds a form with fields and one file part per path.
func multipartFiles(fields map[string]string, field string, paths ...string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for _, path := range paths {
		if err := copyFilePart(w, field, path); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func copyFilePart(w *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
