package server

import (
	"errors"
	"net/http"

	"github.com/sagelabs/sage/internal/document"
	"github.com/sagelabs/sage/pkg/types"
)

// listDocuments handles GET /document?user=&family=&prefix=
// With a family filter the catalog index answers; otherwise the store
// lists paths under the prefix.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "user is required")
		return
	}

	if family := r.URL.Query().Get("family"); family != "" {
		if !types.KnownFamily(types.Family(family)) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown document family")
			return
		}
		entries, err := s.catalog.ListDocuments(r.Context(), user, types.Family(family))
		if err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		if entries == nil {
			entries = []types.IndexEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	paths, err := s.store.List(r.Context(), user, r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, paths)
}

// readDocument handles GET /document/content?user=&path=
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	path := r.URL.Query().Get("path")
	if user == "" || path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "user and path are required")
		return
	}

	doc, err := s.store.Read(r.Context(), user, path)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// listProviders handles GET /provider
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.providerReg.List()
	out := make([]map[string]string, 0, len(providers))
	for _, p := range providers {
		out = append(out, map[string]string{"id": p.ID(), "name": p.Name()})
	}
	writeJSON(w, http.StatusOK, out)
}

// listModels handles GET /model
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.providerReg.AllModels())
}
