package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/services"
)

// APIHandler serves the nucleus API: key management, the three nucleus
// operations, status, usage and reset.
type APIHandler struct {
	keys    *services.KeyService
	nucleus *services.NucleusService
}

func NewAPIHandler(keys *services.KeyService, nucleus *services.NucleusService) *APIHandler {
	return &APIHandler{
		keys:    keys,
		nucleus: nucleus,
	}
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/generate_key", h.handleGenerateKey)
	mux.HandleFunc("/api/v1/chat", h.requireAPIKey(http.MethodPost, "chat", h.handleChat))
	mux.HandleFunc("/api/v1/execute", h.requireAPIKey(http.MethodPost, "commands", h.handleExecute))
	mux.HandleFunc("/api/v1/process", h.requireAPIKey(http.MethodPost, "process", h.handleProcess))
	mux.HandleFunc("/api/v1/status", h.handleStatus)
	mux.HandleFunc("/api/v1/usage", h.requireAPIKey(http.MethodGet, "", h.handleUsage))
	mux.HandleFunc("/api/v1/reset", h.requireAPIKey(http.MethodPost, "admin", h.handleReset))
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/logs", h.handleLogs)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, key *models.APIKey)

// usageRecorder tees the response body so the usage row can carry it.
type usageRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (u *usageRecorder) WriteHeader(status int) {
	u.status = status
	u.ResponseWriter.WriteHeader(status)
}

func (u *usageRecorder) Write(b []byte) (int, error) {
	u.body.Write(b)
	return u.ResponseWriter.Write(b)
}

// requireAPIKey guards a route: method check, key validation, permission
// check. Every successful authenticated call is recorded as usage.
func (h *APIHandler) requireAPIKey(method, permission string, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		key, err := h.keys.ValidateKey(r.Context(), clientKey(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if permission != "" && !h.keys.HasPermission(key, permission) {
			writeError(w, http.StatusForbidden, "Permisos insuficientes")
			return
		}

		var reqBody []byte
		if r.Body != nil {
			reqBody, _ = io.ReadAll(io.LimitReader(r.Body, 1<<16))
			r.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		start := time.Now()
		rec := &usageRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r, key)

		if rec.status < http.StatusBadRequest {
			endpoint := strings.TrimPrefix(r.URL.Path, "/api/v1/")
			h.keys.RecordUsage(r.Context(), key.KeyID, endpoint,
				string(reqBody), rec.body.String(), time.Since(start).Seconds())
		}
	}
}

func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func (h *APIHandler) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID      string   `json:"user_id"`
		Permissions []string `json:"permissions"`
		ExpiresDays int      `json:"expires_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id requerido")
		return
	}

	generated, err := h.keys.GenerateKey(r.Context(), req.UserID, req.Permissions, req.ExpiresDays)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, generated)
}

func (h *APIHandler) handleChat(w http.ResponseWriter, r *http.Request, key *models.APIKey) {
	start := time.Now()

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Mensaje requerido")
		return
	}

	response, err := h.nucleus.ProcessChat(r.Context(), h.nucleusRequest(req.Message), "http.chat", "http-worker")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response":        response.Text,
		"type":            response.Type,
		"processing_time": time.Since(start).Seconds(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (h *APIHandler) handleExecute(w http.ResponseWriter, r *http.Request, key *models.APIKey) {
	start := time.Now()

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "Comando requerido")
		return
	}

	response, err := h.nucleus.ProcessExecute(r.Context(), h.nucleusRequest(req.Command), "http.execute", "http-worker")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	success := response.Execution != nil && response.Execution.Success
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"command":         req.Command,
		"output":          response.Text,
		"success":         success,
		"processing_time": time.Since(start).Seconds(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (h *APIHandler) handleProcess(w http.ResponseWriter, r *http.Request, key *models.APIKey) {
	start := time.Now()

	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "Input requerido")
		return
	}

	response, err := h.nucleus.ProcessProcess(r.Context(), h.nucleusRequest(req.Input), "http.process", "http-worker")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"input":           req.Input,
		"result":          response,
		"processing_time": time.Since(start).Seconds(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// handleStatus answers without auth; a valid key adds its api_info block.
func (h *APIHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.nucleus.Status()
	if apiKey := clientKey(r); apiKey != "" {
		if key, err := h.keys.ValidateKey(r.Context(), apiKey); err == nil {
			status["api_info"] = map[string]interface{}{
				"user_id":     key.UserID,
				"permissions": key.Permissions,
			}
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) handleUsage(w http.ResponseWriter, r *http.Request, key *models.APIKey) {
	stats, err := h.keys.GetUsageStats(r.Context(), key.KeyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get usage stats: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key_id":      key.KeyID,
		"usage_stats": stats,
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

func (h *APIHandler) handleReset(w http.ResponseWriter, r *http.Request, key *models.APIKey) {
	if err := h.nucleus.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Sistema reiniciado",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *APIHandler) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	logs, err := h.nucleus.GetRequestLogs(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get logs: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(logs)
}

func (h *APIHandler) nucleusRequest(input string) services.NucleusRequest {
	return services.NucleusRequest{
		ReqID: fmt.Sprintf("http-%d", time.Now().UnixNano()),
		Input: input,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusFromError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "exists"):
		return http.StatusConflict
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"), strings.Contains(msg, "requerido"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
