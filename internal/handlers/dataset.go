package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/services"
)

type DatasetHandler struct {
	datasetService *services.DatasetService
}

func NewDatasetHandler(datasetService *services.DatasetService) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
	}
}

// RegisterRoutes registers all dataset-related routes
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/datasets", h.handleDatasets)
	mux.HandleFunc("/api/v1/datasets/", h.handleDatasetPath)
	mux.HandleFunc("/api/v1/datasets/generate", h.handleGenerate)
}

func (h *DatasetHandler) handleDatasets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listDatasets(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DatasetHandler) handleDatasetPath(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/datasets/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "Invalid path format", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getDataset(w, r, name)
	case http.MethodPost:
		h.saveDataset(w, r, name)
	case http.MethodDelete:
		h.deleteDataset(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DatasetHandler) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.datasetService.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list datasets: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

// getDataset returns registry info; with ?limit= it attaches a records
// preview.
func (h *DatasetHandler) getDataset(w http.ResponseWriter, r *http.Request, name string) {
	info, err := h.datasetService.GetDataset(r.Context(), name)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		records, err := h.datasetService.ReadRecords(r.Context(), name, limit)
		if err != nil {
			writeError(w, statusFromError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"info":    info,
			"records": records,
		})
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *DatasetHandler) saveDataset(w http.ResponseWriter, r *http.Request, name string) {
	var req struct {
		Source  string                  `json:"source"`
		Records []*models.DatasetRecord `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	info, err := h.datasetService.SaveDataset(r.Context(), name, req.Source, req.Records)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (h *DatasetHandler) deleteDataset(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.datasetService.DeleteDataset(r.Context(), name); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Dataset deleted", "name": name})
}

func (h *DatasetHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Family string `json:"family"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Family == "" {
		req.Family = "all"
	}

	summaries, err := h.datasetService.Generate(r.Context(), req.Family)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated": summaries,
		"count":     len(summaries),
	})
}
