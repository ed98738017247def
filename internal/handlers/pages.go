package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/razonbilstro/nucleus-service/internal/services"
)

// PagesHandler serves the embedded dashboard pages and the SSE feed
// behind the live monitoring view.
type PagesHandler struct {
	live *services.LiveService
}

func NewPagesHandler(live *services.LiveService) *PagesHandler {
	return &PagesHandler{live: live}
}

func (h *PagesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/live-monitoring", h.handleLiveMonitoring)
	mux.HandleFunc("/api/events", h.handleEvents)
}

func (h *PagesHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(indexHTML))
}

func (h *PagesHandler) handleLiveMonitoring(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(liveDashboardHTML))
}

// handleEvents streams live reports as Server-Sent Events.
func (h *PagesHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Send the latest retained report so the page is never empty.
	if recent := h.live.Recent(); len(recent) > 0 {
		data, _ := json.Marshal(recent[len(recent)-1])
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	reports, cancel := h.live.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case report, ok := <-reports:
			if !ok {
				return
			}
			data, _ := json.Marshal(report)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>RazonbilstroOS Nucleus</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 20px; background: #f5f5f5; }
        .header { background: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .card { background: white; border-radius: 8px; padding: 20px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .endpoint { font-family: monospace; background: #f0f0f0; padding: 4px 8px; border-radius: 4px; display: inline-block; margin: 3px 0; }
        .method { font-weight: bold; color: #1976d2; }
        a { color: #1976d2; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🧠 RazonbilstroOS Nucleus API</h1>
        <p>Nucleo neural con TTY integrado - version 4.1</p>
        <p><a href="/live-monitoring">📊 Monitoreo en vivo</a> | <a href="/logs">🗒️ Request logs</a> | <a href="/healthz">❤️ Health</a></p>
    </div>

    <div class="card">
        <h2>Endpoints</h2>
        <div><span class="endpoint"><span class="method">POST</span> /api/v1/generate_key</span> - generar API key</div><br>
        <div><span class="endpoint"><span class="method">POST</span> /api/v1/chat</span> - chat conversacional</div><br>
        <div><span class="endpoint"><span class="method">POST</span> /api/v1/execute</span> - ejecutar comandos</div><br>
        <div><span class="endpoint"><span class="method">POST</span> /api/v1/process</span> - procesamiento neural completo</div><br>
        <div><span class="endpoint"><span class="method">GET</span> /api/v1/status</span> - estado del sistema</div><br>
        <div><span class="endpoint"><span class="method">GET</span> /api/v1/usage</span> - estadisticas de uso</div><br>
        <div><span class="endpoint"><span class="method">POST</span> /api/v1/reset</span> - reiniciar nucleo TTY</div><br>
        <div><span class="endpoint"><span class="method">GET</span> /api/v1/datasets</span> - datasets generados</div>
    </div>

    <div class="card">
        <h2>Autenticacion</h2>
        <p>Cabecera <span class="endpoint">X-API-Key</span> o parametro <span class="endpoint">api_key</span>.</p>
    </div>
</body>
</html>`

const liveDashboardHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Nucleus Live Monitoring</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 20px; background: #f5f5f5; }
        .header { background: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 20px; }
        .card { background: white; border-radius: 8px; padding: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .card h2 { margin-top: 0; font-size: 16px; color: #333; }
        .metric { display: flex; justify-content: space-between; padding: 4px 0; border-bottom: 1px solid #eee; font-size: 14px; }
        .metric:last-child { border-bottom: none; }
        .metric .value { font-weight: bold; color: #1976d2; }
        .detection { padding: 8px; margin: 6px 0; background: #fff3e0; border-left: 3px solid #ff9800; border-radius: 4px; font-size: 13px; }
        .status { display: inline-block; padding: 4px 8px; border-radius: 4px; font-size: 12px; font-weight: bold; }
        .status.active { background: #4caf50; color: white; }
        .status.inactive { background: #f44336; color: white; }
        .update-time { color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🔴 Monitoreo en Vivo - Nucleo</h1>
        <div class="update-time" id="lastUpdate">Conectando...</div>
    </div>

    <div class="grid">
        <div class="card">
            <h2>🖥️ Recursos del Sistema</h2>
            <div id="resources"><div class="metric">Esperando datos...</div></div>
        </div>
        <div class="card">
            <h2>🧠 Estado del Nucleo</h2>
            <div id="nucleus"><div class="metric">Esperando datos...</div></div>
        </div>
        <div class="card">
            <h2>📦 Datasets</h2>
            <div id="datasets"><div class="metric">Esperando datos...</div></div>
        </div>
        <div class="card">
            <h2>👁️ Detecciones del Watcher</h2>
            <div id="detections"><div class="metric">Sin detecciones</div></div>
        </div>
    </div>

    <script>
        const lastUpdateEl = document.getElementById('lastUpdate');
        const eventSource = new EventSource('/api/events');

        eventSource.onmessage = function(event) {
            const report = JSON.parse(event.data);
            renderReport(report);
            lastUpdateEl.textContent = 'Reporte #' + report.sequence + ' - ' + new Date().toLocaleTimeString();
        };

        eventSource.onerror = function() {
            lastUpdateEl.textContent = 'Error de conexion - reintentando...';
        };

        function metric(label, value) {
            return '<div class="metric"><span>' + label + '</span><span class="value">' + value + '</span></div>';
        }

        function renderReport(report) {
            const res = report.resources || {};
            document.getElementById('resources').innerHTML =
                metric('Goroutines', res.goroutines ?? '-') +
                metric('Heap', (res.heap_alloc_mb ?? 0).toFixed(1) + ' MB') +
                metric('Sys', (res.sys_mb ?? 0).toFixed(1) + ' MB') +
                metric('Uptime', Math.floor(res.uptime_seconds ?? 0) + 's') +
                (res.adaptation_strategy ? metric('Estrategia', res.adaptation_strategy) : '');

            const nuc = report.nucleus || {};
            const tty = nuc.tty_active
                ? '<span class="status active">activo</span>'
                : '<span class="status inactive">inactivo</span>';
            document.getElementById('nucleus').innerHTML =
                metric('Sistema', nuc.system ?? '-') +
                metric('Version', nuc.version ?? '-') +
                metric('TTY', tty) +
                metric('Pendientes', nuc.pending_messages ?? 0) +
                metric('Procesando', nuc.active_processing ?? 0);

            const ds = report.datasets || {};
            document.getElementById('datasets').innerHTML =
                metric('Datasets', ds.count ?? 0) +
                metric('Registros', ds.total_records ?? 0) +
                (ds.latest ? metric('Ultimo', ds.latest) : '');

            const detections = report.detections || [];
            if (detections.length === 0) {
                document.getElementById('detections').innerHTML = '<div class="metric">Sin detecciones</div>';
            } else {
                document.getElementById('detections').innerHTML = detections.map(det =>
                    '<div class="detection"><b>' + det.error_type + '</b>: ' + det.response + '</div>'
                ).join('');
            }
        }
    </script>
</body>
</html>`
