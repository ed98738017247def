package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/razonbilstro/nucleus-service/internal/config"
	"github.com/razonbilstro/nucleus-service/internal/neural"
	"github.com/razonbilstro/nucleus-service/internal/repository"
	"github.com/razonbilstro/nucleus-service/internal/services"
	"github.com/razonbilstro/nucleus-service/internal/tokenizer"
	"github.com/razonbilstro/nucleus-service/internal/tty"
)

// newTestAPI wires the handler over the in-memory repository. The shell
// path does not exist, so the TTY stays inactive and reset fails without
// spawning processes.
func newTestAPI(t *testing.T) (*http.ServeMux, *services.KeyService) {
	t.Helper()

	cfg := &config.Config{Version: "4.1"}
	repo := repository.NewMemoryRepository()
	keys := services.NewKeyService(repo)
	nucleus := services.NewNucleusService(cfg, repo,
		neural.NewNetwork(neural.ActivationSigmoid), tokenizer.New(0), tty.NewNucleus("/nonexistent/shell"))

	mux := http.NewServeMux()
	NewAPIHandler(keys, nucleus).RegisterRoutes(mux)
	return mux, keys
}

func apiKeyFor(t *testing.T, keys *services.KeyService, permissions []string) string {
	t.Helper()
	generated, err := keys.GenerateKey(context.Background(), "tester", permissions, 0)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return generated.APIKey
}

func postJSON(mux *http.ServeMux, path, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func getPath(mux *http.ServeMux, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestGenerateKeyEndpoint(t *testing.T) {
	mux, _ := newTestAPI(t)

	w := postJSON(mux, "/api/v1/generate_key", "", `{"user_id":"dev"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	keyID, _ := body["key_id"].(string)
	if !strings.HasPrefix(keyID, "rzb_") {
		t.Errorf("key_id = %q, want rzb_ prefix", keyID)
	}
	if body["api_key"] == nil || body["api_key"] == "" {
		t.Error("api_key missing from response")
	}

	w = postJSON(mux, "/api/v1/generate_key", "", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "user_id requerido" {
		t.Errorf("error = %v, want user_id requerido", body["error"])
	}

	if w := getPath(mux, "/api/v1/generate_key", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", w.Code)
	}
}

func TestAuthRejections(t *testing.T) {
	mux, keys := newTestAPI(t)

	// No key at all.
	w := postJSON(mux, "/api/v1/chat", "", `{"message":"hola"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", w.Code)
	}
	if body := decodeBody(t, w); body["error"] == nil {
		t.Error("401 response should carry an error field")
	}

	// Garbage key.
	w = postJSON(mux, "/api/v1/chat", "rzb_bogus_bogus", `{"message":"hola"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d, want 401", w.Code)
	}

	// Valid key without the process permission.
	chatOnly := apiKeyFor(t, keys, []string{"chat"})
	w = postJSON(mux, "/api/v1/process", chatOnly, `{"input":"hola"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("missing permission status = %d, want 403", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Permisos insuficientes" {
		t.Errorf("error = %v, want Permisos insuficientes", body["error"])
	}

	// Method guard fires before auth.
	if w := getPath(mux, "/api/v1/chat", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET chat status = %d, want 405", w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	mux, keys := newTestAPI(t)
	key := apiKeyFor(t, keys, nil)

	w := postJSON(mux, "/api/v1/chat", key, `{"message":"hola nucleo"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["type"] != "conversation" {
		t.Errorf("type = %v, want conversation", body["type"])
	}
	response, _ := body["response"].(string)
	if !strings.Contains(response, "He procesado su solicitud") {
		t.Errorf("response = %q, want conversational acknowledgement", response)
	}
	if _, ok := body["processing_time"].(float64); !ok {
		t.Error("processing_time missing")
	}
	if body["timestamp"] == nil {
		t.Error("timestamp missing")
	}

	w = postJSON(mux, "/api/v1/chat", key, `{"message":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Mensaje requerido" {
		t.Errorf("error = %v, want Mensaje requerido", body["error"])
	}
}

func TestExecuteEndpointWithoutTTY(t *testing.T) {
	mux, keys := newTestAPI(t)
	key := apiKeyFor(t, keys, nil)

	w := postJSON(mux, "/api/v1/execute", key, `{"command":"ls -la"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["command"] != "ls -la" {
		t.Errorf("command = %v", body["command"])
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false with inactive TTY", body["success"])
	}

	w = postJSON(mux, "/api/v1/execute", key, `{"command":""}`)
	if body := decodeBody(t, w); w.Code != http.StatusBadRequest || body["error"] != "Comando requerido" {
		t.Errorf("empty command: status %d error %v", w.Code, body["error"])
	}
}

func TestProcessEndpoint(t *testing.T) {
	mux, keys := newTestAPI(t)
	key := apiKeyFor(t, keys, []string{"process"})

	w := postJSON(mux, "/api/v1/process", key, `{"input":"analizar red"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["input"] != "analizar red" {
		t.Errorf("input = %v", body["input"])
	}
	result, ok := body["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("result missing: %v", body["result"])
	}
	if result["type"] != "process" {
		t.Errorf("result type = %v, want process", result["type"])
	}
	if conf, _ := result["confidence"].(float64); conf <= 0 {
		t.Errorf("confidence = %v, want positive", result["confidence"])
	}

	w = postJSON(mux, "/api/v1/process", key, `{"input":""}`)
	if body := decodeBody(t, w); w.Code != http.StatusBadRequest || body["error"] != "Input requerido" {
		t.Errorf("empty input: status %d error %v", w.Code, body["error"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	mux, keys := newTestAPI(t)

	// Status answers without a key, no api_info block.
	w := getPath(mux, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["system"] != "RazonbilstroOS Nucleus API" {
		t.Errorf("system = %v", body["system"])
	}
	if body["tty_active"] != false {
		t.Errorf("tty_active = %v, want false", body["tty_active"])
	}
	if _, ok := body["api_info"]; ok {
		t.Error("api_info should be absent without a key")
	}

	// With a key the caller's identity is attached.
	key := apiKeyFor(t, keys, nil)
	w = getPath(mux, "/api/v1/status", key)
	body = decodeBody(t, w)
	info, ok := body["api_info"].(map[string]interface{})
	if !ok {
		t.Fatalf("api_info missing with valid key: %v", body)
	}
	if info["user_id"] != "tester" {
		t.Errorf("api_info user_id = %v", info["user_id"])
	}
}

func TestUsageEndpoint(t *testing.T) {
	mux, keys := newTestAPI(t)
	key := apiKeyFor(t, keys, nil)

	if w := postJSON(mux, "/api/v1/chat", key, `{"message":"hola"}`); w.Code != http.StatusOK {
		t.Fatalf("chat failed: %d", w.Code)
	}

	w := getPath(mux, "/api/v1/usage", key)
	if w.Code != http.StatusOK {
		t.Fatalf("usage status = %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["key_id"] == nil {
		t.Error("key_id missing")
	}
	stats, ok := body["usage_stats"].([]interface{})
	if !ok || len(stats) == 0 {
		t.Fatalf("usage_stats = %v, want at least the chat entry", body["usage_stats"])
	}
	first, _ := stats[0].(map[string]interface{})
	if first["endpoint"] != "chat" {
		t.Errorf("endpoint = %v, want chat", first["endpoint"])
	}
	if first["requests"] != float64(1) {
		t.Errorf("requests = %v, want 1", first["requests"])
	}
}

func TestResetEndpoint(t *testing.T) {
	mux, keys := newTestAPI(t)

	// Non-admin keys are rejected.
	key := apiKeyFor(t, keys, nil)
	w := postJSON(mux, "/api/v1/reset", key, `{}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin reset status = %d, want 403", w.Code)
	}

	// Admin passes the permission check; the restart itself fails because
	// the shell path does not exist.
	admin := apiKeyFor(t, keys, []string{"admin"})
	w = postJSON(mux, "/api/v1/reset", admin, `{}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("admin reset status = %d, want 500 for missing shell", w.Code)
	}
	if body := decodeBody(t, w); body["error"] == nil {
		t.Error("reset failure should carry an error")
	}
}

func TestLogsEndpoint(t *testing.T) {
	mux, keys := newTestAPI(t)
	key := apiKeyFor(t, keys, nil)
	postJSON(mux, "/api/v1/chat", key, `{"message":"hola"}`)

	w := getPath(mux, "/logs?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs status = %d", w.Code)
	}
	var logs []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("logs response is not a JSON array: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d log rows, want 1", len(logs))
	}
	if logs[0]["operation"] != "chat" {
		t.Errorf("operation = %v, want chat", logs[0]["operation"])
	}
}

func TestAPIKeyQueryParam(t *testing.T) {
	mux, keys := newTestAPI(t)
	key := apiKeyFor(t, keys, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat?api_key="+key,
		bytes.NewBufferString(`{"message":"hola"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query param auth status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestAPI(t)

	w := getPath(mux, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", w.Code, w.Body.String())
	}
}
