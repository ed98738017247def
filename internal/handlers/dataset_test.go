package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/services"
)

func newTestDatasetAPI(t *testing.T) *http.ServeMux {
	t.Helper()
	repo := repository.NewMemoryRepository()
	mux := http.NewServeMux()
	NewDatasetHandler(services.NewDatasetService(repo, nil)).RegisterRoutes(mux)
	return mux
}

const sampleRecords = `{"source":"manual","records":[
	{"id":"r1","input_data":{"raw_input":"nmap","semantic_type":"cli_tool"},"output_data":{"raw_output":{"command":"nmap"}}},
	{"id":"r2","input_data":{"raw_input":"hydra","semantic_type":"cli_tool"},"output_data":{"raw_output":{"command":"hydra"}}}
]}`

func TestDatasetCRUD(t *testing.T) {
	mux := newTestDatasetAPI(t)

	// Save.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/tools", bytes.NewBufferString(sampleRecords))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d (%s)", w.Code, w.Body.String())
	}
	info := decodeBody(t, w)
	if info["name"] != "tools" || info["record_count"] != float64(2) {
		t.Errorf("saved info = %v", info)
	}

	// Duplicate save conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets/tools", bytes.NewBufferString(sampleRecords))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate save status = %d, want 409", w.Code)
	}

	// List.
	w = getPath(mux, "/api/v1/datasets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decodeBody(t, w)
	if list["count"] != float64(1) {
		t.Errorf("count = %v, want 1", list["count"])
	}

	// Get info only.
	w = getPath(mux, "/api/v1/datasets/tools", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["records"] != nil {
		t.Error("records should be omitted without a limit")
	}

	// Get with record preview.
	w = getPath(mux, "/api/v1/datasets/tools?limit=1", "")
	body := decodeBody(t, w)
	records, ok := body["records"].([]interface{})
	if !ok || len(records) != 1 {
		t.Fatalf("records = %v, want 1 preview row", body["records"])
	}
	first, _ := records[0].(map[string]interface{})
	if first["id"] != "r1" {
		t.Errorf("first record id = %v, want r1", first["id"])
	}

	w = getPath(mux, "/api/v1/datasets/tools?limit=0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", w.Code)
	}

	// Delete, then further reads miss.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/datasets/tools", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := getPath(mux, "/api/v1/datasets/tools", ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestDatasetPathValidation(t *testing.T) {
	mux := newTestDatasetAPI(t)

	if w := getPath(mux, "/api/v1/datasets/a/b", ""); w.Code != http.StatusBadRequest {
		t.Errorf("nested path status = %d, want 400", w.Code)
	}
	if w := getPath(mux, "/api/v1/datasets/", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", w.Code)
	}
	if w := getPath(mux, "/api/v1/datasets/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing dataset status = %d, want 404", w.Code)
	}
}

func TestDatasetGenerateUnconfigured(t *testing.T) {
	mux := newTestDatasetAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/generate", bytes.NewBufferString(`{"family":"kali"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("generate without generator status = %d, want 500", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == nil {
		t.Errorf("generate failure body = %s", w.Body.String())
	}
}
