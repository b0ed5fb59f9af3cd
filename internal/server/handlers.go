package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/payload"
	"github.com/alexanderramin/tasktree/internal/repository"
)

const maxBodyBytes = 1 << 20

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !domain.ValidProjectStatuses[status] {
		writeAPIError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown project status "+status)
		return
	}
	refs, err := s.catalog.Projects(r.Context(), domain.ProjectStatus(status))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) categoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.catalog.Tree(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) submitAssignment(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	var p contract.AssignmentPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json: "+err.Error())
		return
	}
	if p.ProjectID == "" {
		p.ProjectID = projectID
	}
	if p.ProjectID != projectID {
		writeAPIError(w, http.StatusBadRequest, "PROJECT_MISMATCH", "payload projectId does not match the URL")
		return
	}

	result, err := s.catalog.Assign(r.Context(), p)
	if err != nil {
		s.assignError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) assignError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *payload.ValidationError
		conflict *repository.NameConflictError
	)
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, contract.ConflictResponse{
			Message:    "duplicate names in destination project",
			Duplicates: conflict.Duplicates,
		})
	case errors.As(err, &verr):
		writeAPIError(w, http.StatusBadRequest, "VALIDATION_FAILED", verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrStructuralIntegrity), errors.Is(err, domain.ErrNoSelection):
		writeAPIError(w, http.StatusBadRequest, "INVALID_ASSIGNMENT", err.Error())
	default:
		s.internalError(w, r, err)
	}
}

type assignedItemJSON struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	SourceID      string  `json:"sourceId"`
	ParentID      string  `json:"parentId,omitempty"`
	Name          string  `json:"name"`
	Rank          int     `json:"rank"`
	BudgetedHours float64 `json:"budgetedHours"`
	Implicit      bool    `json:"implicit"`
}

func (s *Server) listAssigned(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.Assigned(r.Context(), mux.Vars(r)["projectId"])
	if errors.Is(err, domain.ErrNotFound) {
		writeAPIError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	out := make([]assignedItemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, assignedItemJSON{
			ID:            it.ID,
			Kind:          string(it.Kind),
			SourceID:      it.SourceID,
			ParentID:      it.ParentID,
			Name:          it.Name,
			Rank:          it.Rank,
			BudgetedHours: it.BudgetedHours,
			Implicit:      it.Implicit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request_failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, contract.ErrorResponse{Code: code, Message: message})
}
