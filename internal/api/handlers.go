// Package api exposes the fieldreport HTTP handlers.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fieldreport/internal/auth"
	"fieldreport/internal/core"
	"fieldreport/internal/observability"
	"fieldreport/pkg/domain"
)

// Handler coordinates HTTP requests with the core service. The technician
// identity is ambient: every request operates as the device's pinned
// anonymous identity.
type Handler struct {
	service *core.Service
	auth    *auth.Manager
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *core.Service, authMgr *auth.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, auth: authMgr, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sessions", h.sessions)
	mux.HandleFunc("/v1/sessions/", h.sessionByID)
	mux.HandleFunc("/v1/records", h.records)
	mux.HandleFunc("/v1/records/", h.recordByID)
	mux.HandleFunc("/v1/submissions", h.submissions)
	mux.HandleFunc("/v1/profile", h.profile)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// SessionResponse describes an opened form session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	TechID    string `json:"tech_id"`
	Local     bool   `json:"local_identity"`
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	identity, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: h.service.OpenSession(),
		TechID:    identity.TechID,
		Local:     identity.Local,
	})
}

func (h *Handler) sessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}
	switch {
	case r.Method == http.MethodPost && action == "reset":
		if err := h.service.ResetSession(id); err != nil {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete && action == "":
		h.service.CloseSession(id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// SaveRequest carries one form save or submission.
type SaveRequest struct {
	SessionID string            `json:"session_id"`
	FormType  domain.FormType   `json:"form_type"`
	Record    domain.FormRecord `json:"record"`
}

// Validate checks request shape before touching the service.
func (req SaveRequest) Validate() error {
	if req.SessionID == "" {
		return errors.New("session_id required")
	}
	if !req.FormType.Valid() {
		return errors.New("form_type must be service or pm")
	}
	return nil
}

// SaveResponse reports where the save landed and the bound document id.
type SaveResponse struct {
	Outcome string `json:"outcome"`
	DocID   string `json:"doc_id"`
}

// HistoryResponse is the merged record listing.
type HistoryResponse struct {
	Entries []domain.HistoryEntry `json:"entries"`
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.saveRecord(w, r)
	case http.MethodGet:
		h.listHistory(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) saveRecord(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	identity, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	outcome, docID, err := h.service.Save(r.Context(), req.SessionID, req.FormType, req.Record, identity.TechID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	observability.RecordSaveOutcome(string(outcome))
	writeJSON(w, http.StatusOK, SaveResponse{Outcome: string(outcome), DocID: docID})
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	formType := domain.FormType(r.URL.Query().Get("form_type"))
	if !formType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "form_type must be service or pm")
		return
	}
	identity, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	entries, err := h.service.History(r.Context(), formType, identity.TechID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func (h *Handler) recordByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing record id")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	formType := domain.FormType(r.URL.Query().Get("form_type"))
	if !formType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "form_type must be service or pm")
		return
	}
	identity, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := h.service.DeleteFromHistory(r.Context(), formType, id, identity.TechID); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitResponse packages the rendered report and email handoff.
type SubmitResponse struct {
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	PDFBase64   string          `json:"pdf_base64"`
	Email       core.EmailDraft `json:"email"`
	DocID       string          `json:"doc_id"`
}

func (h *Handler) submissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	identity, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	artifact, err := h.service.Submit(r.Context(), req.SessionID, req.FormType, req.Record, identity.TechID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	binding, _ := h.service.Binding(req.SessionID)
	writeJSON(w, http.StatusOK, SubmitResponse{
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		PDFBase64:   base64.StdEncoding.EncodeToString(artifact.Bytes),
		Email:       artifact.Email,
		DocID:       binding.ID(),
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		profile, ok, err := h.service.TechnicianProfile(r.Context(), identity.TechID)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "no profile saved")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var profile domain.TechnicianProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		profile.TechID = identity.TechID
		if err := h.service.SaveTechnicianProfile(r.Context(), profile); err != nil {
			h.writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// writeFailure maps core errors onto HTTP statuses.
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var vErr domain.ValidationError
	var rErr domain.RenderError
	var lsErr domain.LocalStoreError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", vErr.Error())
	case errors.As(err, &rErr):
		h.logger.Error("report rendering failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render_failed", "unable to render report")
	case errors.As(err, &lsErr):
		h.logger.Error("device storage failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed", "device storage unavailable")
	case strings.Contains(err.Error(), "unknown session"):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
