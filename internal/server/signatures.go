package server

import (
	"net/http"
	"strconv"

	v1 "github.com/emrgen/docscan/apis/v1"
	"github.com/emrgen/docscan/internal/imaging"
)

// createSignature stores the multipart "image" file under "name". The
// optional "default" field makes it the default signature.
func (s *Server) createSignature(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeErr(w, badRequest("parse multipart form: %v", err))
		return
	}

	files := r.MultipartForm.File["image"]
	if len(files) != 1 {
		writeErr(w, badRequest("expected one signature image, got %d", len(files)))
		return
	}
	img, err := decodeUpload(files[0])
	if err != nil {
		writeErr(w, badRequest("signature image: %v", err))
		return
	}

	makeDefault := false
	if value := r.FormValue("default"); value != "" {
		makeDefault, err = strconv.ParseBool(value)
		if err != nil {
			writeErr(w, badRequest("invalid default flag %q", value))
			return
		}
	}

	sig, err := s.deps.Signatures.CreateSignature(r.Context(), r.FormValue("name"), img, makeDefault)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSignature(sig))
}

func (s *Server) listSignatures(w http.ResponseWriter, r *http.Request) {
	sigs, err := s.deps.Signatures.ListSignatures(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	out := make([]v1.Signature, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, toSignature(sig))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getDefaultSignature(w http.ResponseWriter, r *http.Request) {
	sig, err := s.deps.Signatures.GetDefaultSignature(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if sig == nil {
		writeError(w, http.StatusNotFound, "no default signature")
		return
	}

	writeJSON(w, http.StatusOK, toSignature(sig))
}

func (s *Server) signatureImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	img, err := s.deps.Signatures.SignatureImage(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) setDefaultSignature(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	sig, err := s.deps.Signatures.SetDefaultSignature(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSignature(sig))
}

func (s *Server) deleteSignature(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := s.deps.Signatures.DeleteSignature(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
