package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/medreg/internal/ingest"
	"github.com/ignite/medreg/internal/pkg/distlock"
	"github.com/ignite/medreg/internal/pkg/logger"
	"github.com/ignite/medreg/internal/query"
	"github.com/ignite/medreg/internal/store"
)

// maxImportUpload caps the multipart form memory before spilling to disk.
const maxImportUpload = 32 << 20 // 32MB

// MedicinesAPI exposes the register's read operations and the CSV import
// over REST. Client errors get short messages; store failures are logged
// with detail and answered with a generic body.
type MedicinesAPI struct {
	svc      *query.Service
	importer *ingest.Coordinator

	// newLock builds a fresh import lock per request; lock instances are
	// single-goroutine. nil disables import serialization.
	newLock func() distlock.DistLock
}

func NewMedicinesAPI(svc *query.Service, importer *ingest.Coordinator, newLock func() distlock.DistLock) *MedicinesAPI {
	return &MedicinesAPI{svc: svc, importer: importer, newLock: newLock}
}

func (api *MedicinesAPI) RegisterRoutes(r chi.Router) {
	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", api.HandleList)
		r.Get("/stats", api.HandleStats)
		r.Get("/fields/{field}/values", api.HandleDistinctValues)
		r.Get("/{id}", api.HandleGet)
		r.Post("/import", api.HandleImport)
	})
}

// HandleList returns one filtered, paginated page of the register.
func (api *MedicinesAPI) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := parsePagination(q)

	filters := make(map[string]string, len(q))
	for name, vals := range q {
		if len(vals) > 0 {
			filters[name] = vals[0]
		}
	}

	records, pg, err := api.svc.List(r.Context(), filters, page, pageSize)
	if err != nil {
		serverError(w, "list medicines", err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       records,
		"pagination": pg,
	})
}

// HandleGet returns a single record by identity.
func (api *MedicinesAPI) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		clientError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := api.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			clientError(w, http.StatusNotFound, "medicine not found")
			return
		}
		serverError(w, "get medicine", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleDistinctValues returns the sorted distinct values of one field,
// used by clients to populate filter dropdowns.
func (api *MedicinesAPI) HandleDistinctValues(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	values, err := api.svc.DistinctValues(r.Context(), field)
	if err != nil {
		if errors.Is(err, query.ErrInvalidField) {
			clientError(w, http.StatusBadRequest, "unknown field: "+field)
			return
		}
		serverError(w, "distinct values", err)
		return
	}
	if values == nil {
		values = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"field":  field,
		"values": values,
	})
}

// HandleStats returns the register-wide aggregate counts.
func (api *MedicinesAPI) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.svc.Stats(r.Context())
	if err != nil {
		serverError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleImport ingests an uploaded CSV snapshot and returns the outcome.
// Row-level failures do not fail the request; only an unreadable or
// unparseable upload does.
func (api *MedicinesAPI) HandleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		clientError(w, http.StatusBadRequest, `expected multipart upload with a "file" part`)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		clientError(w, http.StatusBadRequest, `missing "file" part`)
		return
	}
	defer file.Close()

	// Imports append; running two at once would duplicate the register.
	if api.newLock != nil {
		lock := api.newLock()
		ok, err := lock.Acquire(r.Context())
		if err != nil {
			serverError(w, "import lock", err)
			return
		}
		if !ok {
			clientError(w, http.StatusConflict, "an import is already running")
			return
		}
		defer lock.Release(r.Context())
	}

	outcome, err := api.importer.ImportReader(r.Context(), file, header.Filename)
	if err != nil {
		var parseErr *ingest.ParseError
		if errors.As(err, &parseErr) {
			clientError(w, http.StatusBadRequest, "malformed CSV upload")
			return
		}
		serverError(w, "import", err)
		return
	}

	api.svc.InvalidateCache(r.Context())
	writeJSON(w, http.StatusOK, outcome)
}

// parsePagination applies the defaults and clamps. page is 1-indexed;
// pageSize defaults when absent or unparseable and is clamped to
// [1, MaxPageSize] otherwise.
func parsePagination(q url.Values) (page, pageSize int) {
	page, _ = strconv.Atoi(q.Get(query.ParamPage))
	if page < 1 {
		page = 1
	}
	pageSize = query.DefaultPageSize
	if raw := q.Get(query.ParamLimit); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			pageSize = n
		}
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > query.MaxPageSize {
		pageSize = query.MaxPageSize
	}
	return page, pageSize
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func clientError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serverError logs the diagnostic detail and answers with a generic body;
// store-level failure messages never reach the client.
func serverError(w http.ResponseWriter, op string, err error) {
	logger.Error("request failed", "op", op, "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
