package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
)

// ServiceStatus is one tracked nucleus service: the health payload it
// reports, plus monitor-side bookkeeping (first/last seen, uptime, RTT,
// merged backpressure and resource data).
type ServiceStatus struct {
	ServiceName  string                 `json:"service_name"`
	Status       string                 `json:"status"`
	LastActivity time.Time              `json:"last_activity"`
	Capabilities []string               `json:"capabilities"`
	Endpoint     string                 `json:"endpoint"`
	NATSTopic    string                 `json:"nats_topic"`
	Version      string                 `json:"version"`
	TTYActive    bool                   `json:"tty_active"`
	LastSeen     time.Time              `json:"last_seen"`
	RTT          time.Duration          `json:"rtt,omitempty"`
	Backpressure *BackpressureReport    `json:"backpressure,omitempty"`
	Resources    map[string]interface{} `json:"resources,omitempty"`
	FirstSeen    time.Time              `json:"first_seen"`
	Uptime       time.Duration          `json:"uptime"`
}

// BackpressureReport mirrors the queue pressure messages the nucleus
// publishes on its monitoring topic
type BackpressureReport struct {
	ServiceName      string    `json:"service_name"`
	PendingMessages  int64     `json:"pending_messages"`
	ActiveProcessing int64     `json:"active_processing"`
	Timestamp        time.Time `json:"timestamp"`
	WorkerCount      int       `json:"worker_count"`
	QueueCapacity    int       `json:"queue_capacity"`
	Status           string    `json:"status"`
}

// liveUpdate is the slice of the live report the monitor keeps
type liveUpdate struct {
	ServiceName string                 `json:"service_name"`
	Resources   map[string]interface{} `json:"resources"`
}

// MonitorService tracks every nucleus service heard on the monitoring
// subjects and fans updates out to dashboard subscribers.
type MonitorService struct {
	nats      *nats.Conn
	mu        sync.RWMutex
	services  map[string]*ServiceStatus
	listeners map[int]chan []ServiceStatus
	nextID    int
}

func NewMonitorService(natsURL string) (*MonitorService, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &MonitorService{
		nats:      nc,
		services:  make(map[string]*ServiceStatus),
		listeners: make(map[int]chan []ServiceStatus),
	}, nil
}

func (m *MonitorService) Start(ctx context.Context) error {
	subscriptions := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{"monitoring.nucleus.heartbeat.*", m.onHeartbeat},
		{"monitoring.nucleus.backpressure", m.onBackpressure},
		{"monitoring.nucleus.live.*", m.onLiveReport},
		{"nucleus.discovery", m.onDiscovery},
	}
	for _, sub := range subscriptions {
		if _, err := m.nats.Subscribe(sub.subject, sub.handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", sub.subject, err)
		}
	}

	log.Println("Monitor service started, listening for heartbeats...")

	go m.staleSweep(ctx)
	go m.DiscoverServices()
	go m.rediscoverLoop(ctx)

	return nil
}

// onHeartbeat ingests a heartbeat, preserving the monitor-side fields a
// fresh unmarshal would wipe.
func (m *MonitorService) onHeartbeat(msg *nats.Msg) {
	var status ServiceStatus
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		log.Printf("Failed to parse heartbeat from %s: %v", msg.Subject, err)
		return
	}

	now := time.Now()
	status.LastSeen = now

	m.mu.Lock()
	if existing, exists := m.services[status.ServiceName]; exists {
		status.FirstSeen = existing.FirstSeen
		status.Backpressure = existing.Backpressure
		status.Resources = existing.Resources
	} else {
		status.FirstSeen = now
		log.Printf("New nucleus service: %s", status.ServiceName)
	}
	status.Uptime = now.Sub(status.FirstSeen)
	m.services[status.ServiceName] = &status
	m.mu.Unlock()

	m.notifyListeners()
}

// onBackpressure merges a queue report into an already tracked service.
func (m *MonitorService) onBackpressure(msg *nats.Msg) {
	var report BackpressureReport
	if err := json.Unmarshal(msg.Data, &report); err != nil {
		log.Printf("Failed to parse backpressure report: %v", err)
		return
	}

	m.mu.Lock()
	if service, exists := m.services[report.ServiceName]; exists {
		service.Backpressure = &report
		service.LastSeen = time.Now()
	}
	m.mu.Unlock()

	m.notifyListeners()
}

// onLiveReport merges resource gauges from the live feed.
func (m *MonitorService) onLiveReport(msg *nats.Msg) {
	var update liveUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		log.Printf("Failed to parse live report from %s: %v", msg.Subject, err)
		return
	}

	m.mu.Lock()
	if service, exists := m.services[update.ServiceName]; exists {
		service.Resources = update.Resources
		service.LastSeen = time.Now()
	}
	m.mu.Unlock()
}

// onDiscovery answers clients asking which nucleus services exist.
func (m *MonitorService) onDiscovery(msg *nats.Msg) {
	m.mu.RLock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)

	data, err := json.Marshal(map[string]interface{}{"services": names})
	if err != nil {
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Printf("Failed to answer discovery request: %v", err)
	}
}

// staleSweep marks services offline after two minutes of silence. They
// stay listed so the dashboard shows what disappeared.
func (m *MonitorService) staleSweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.markStale(2 * time.Minute) {
				m.notifyListeners()
			}
		}
	}
}

func (m *MonitorService) markStale(maxAge time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	now := time.Now()
	for name, service := range m.services {
		if now.Sub(service.LastSeen) > maxAge && service.Status != "offline" {
			service.Status = "offline"
			changed = true
			log.Printf("Marked service as offline: %s", name)
		}
	}
	return changed
}

func (m *MonitorService) rediscoverLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.DiscoverServices()
		}
	}
}

// DiscoverServices proactively probes the known service names, so the
// monitor fills before the first heartbeat interval elapses.
func (m *MonitorService) DiscoverServices() {
	knownServices := []string{"razonbilstro-nucleus"}

	for _, service := range knownServices {
		go func(serviceName string) {
			status, err := m.QueryHealth(serviceName)
			if err != nil {
				return
			}

			m.mu.Lock()
			// Heartbeats win over probes
			if _, exists := m.services[serviceName]; !exists {
				now := time.Now()
				status.FirstSeen = now
				status.LastSeen = now
				status.Uptime = 0
				m.services[serviceName] = status
				log.Printf("Discovered service via health check: %s", serviceName)
			}
			m.mu.Unlock()
			m.notifyListeners()
		}(service)
	}
}

func (m *MonitorService) GetServices() []ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	services := make([]ServiceStatus, 0, len(m.services))
	for _, service := range m.services {
		services = append(services, *service)
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].ServiceName < services[j].ServiceName
	})

	return services
}

func (m *MonitorService) QueryHealth(serviceName string) (*ServiceStatus, error) {
	healthTopic := fmt.Sprintf("nucleus.%s.health", serviceName)

	start := time.Now()
	resp, err := m.nats.Request(healthTopic, []byte("{}"), 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	rtt := time.Since(start)

	var status ServiceStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	status.RTT = rtt
	status.LastSeen = time.Now()

	return &status, nil
}

// Subscribe hands out an update channel with its removal function, so
// disconnected dashboards do not pile up dead listeners.
func (m *MonitorService) Subscribe() (<-chan []ServiceStatus, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan []ServiceStatus, 10)
	m.listeners[id] = ch

	return ch, func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *MonitorService) notifyListeners() {
	services := m.GetServices()

	m.mu.RLock()
	for _, ch := range m.listeners {
		select {
		case ch <- services:
		default:
			// Slow subscriber, skip this round
		}
	}
	m.mu.RUnlock()
}

func (m *MonitorService) Close() {
	if m.nats != nil {
		m.nats.Close()
	}
}

func main() {
	var (
		natsURL  = flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
		httpAddr = flag.String("http", ":5780", "HTTP server address")
		cliMode  = flag.Bool("cli", false, "Run in CLI dashboard mode")
		onceMode = flag.Bool("once", false, "Query once and exit")
		refresh  = flag.Duration("refresh", time.Second, "CLI dashboard refresh interval")
	)
	flag.Parse()

	monitor, err := NewMonitorService(*natsURL)
	if err != nil {
		log.Fatalf("Failed to create monitor service: %v", err)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := monitor.Start(ctx); err != nil {
		log.Fatalf("Failed to start monitor service: %v", err)
	}

	switch {
	case *onceMode:
		// Give the first heartbeats and probes a moment to land
		time.Sleep(2 * time.Second)
		printServices(monitor.GetServices())
	case *cliMode:
		runCLIDashboard(ctx, monitor, *refresh)
	default:
		runHTTPServer(ctx, monitor, *httpAddr)
	}
}

func printServices(services []ServiceStatus) {
	if len(services) == 0 {
		fmt.Println("No nucleus services found")
		return
	}

	fmt.Printf("Found %d nucleus services:\n\n", len(services))

	for _, service := range services {
		fmt.Printf("🧠 %s\n", service.ServiceName)
		fmt.Printf("   Version: %s\n", service.Version)
		fmt.Printf("   Status: %s\n", service.Status)
		fmt.Printf("   TTY: %s\n", ttyLabel(service))
		fmt.Printf("   Capabilities: %s\n", strings.Join(service.Capabilities, ", "))
		fmt.Printf("   Endpoint: %s\n", service.Endpoint)
		fmt.Printf("   NATS Topic: %s\n", service.NATSTopic)
		if service.RTT > 0 {
			fmt.Printf("   Response Time: %v\n", service.RTT)
		}
		if service.Backpressure != nil {
			fmt.Printf("   Queue: %d pending, %d active (%s)\n",
				service.Backpressure.PendingMessages,
				service.Backpressure.ActiveProcessing,
				service.Backpressure.Status)
		}
		fmt.Printf("   Last Seen: %v ago\n", time.Since(service.LastSeen).Truncate(time.Second))
		fmt.Println()
	}
}

func ttyLabel(service ServiceStatus) string {
	if service.TTYActive {
		return "active"
	}
	return "inactive"
}

func runCLIDashboard(ctx context.Context, monitor *MonitorService, refresh time.Duration) {
	// Clear screen, hide cursor while the dashboard owns the terminal
	fmt.Print("\033[2J\033[H\033[?25l")
	defer fmt.Print("\033[?25h")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	updates, unsubscribe := monitor.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	renderDashboard(monitor.GetServices())

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			return
		case <-ticker.C:
			renderDashboard(monitor.GetServices())
		case <-updates:
			renderDashboard(monitor.GetServices())
		}
	}
}

func renderDashboard(services []ServiceStatus) {
	// Repaint from the top-left corner
	fmt.Print("\033[2J\033[H")

	now := time.Now()
	fmt.Printf("🔍 Nucleus Service Monitor - %s\n", now.Format("15:04:05"))
	fmt.Printf("%s\n\n", strings.Repeat("═", 64))

	if len(services) == 0 {
		fmt.Println("❌ No nucleus services detected")
		fmt.Println("\n💡 Waiting for heartbeats on monitoring.nucleus.heartbeat.*...")
		return
	}

	fmt.Printf("📊 Active Services: %d\n\n", len(services))

	header := fmt.Sprintf("%-22s %-8s %-9s %-30s %-9s %-10s",
		"SERVICE", "STATUS", "TTY", "CAPABILITIES", "PENDING", "LAST_SEEN")
	fmt.Println(header)
	fmt.Println(strings.Repeat("─", len(header)))

	for _, service := range services {
		status := "🟢 " + service.Status
		if time.Since(service.LastSeen) > time.Minute {
			status = "🟡 stale"
		}

		pending := "-"
		if service.Backpressure != nil {
			pending = fmt.Sprintf("%d", service.Backpressure.PendingMessages)
		}
		capabilities := truncateString(strings.Join(service.Capabilities, ","), 28)
		lastSeen := formatDuration(time.Since(service.LastSeen))

		fmt.Printf("%-22s %-8s %-9s %-30s %-9s %-10s\n",
			service.ServiceName, status, ttyLabel(service), capabilities, pending, lastSeen)
	}

	fmt.Printf("\n💡 Press Ctrl+C to exit\n")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func runHTTPServer(ctx context.Context, monitor *MonitorService, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/services", listServicesHandler(monitor))
	mux.HandleFunc("/api/services/", serviceDetailHandler(monitor))
	mux.HandleFunc("/api/events", eventsHandler(ctx, monitor))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(dashboardHTML))
	})

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Printf("Starting HTTP monitor server on %s", addr)
	log.Printf("Dashboard: http://localhost%s", addr)
	log.Printf("API: http://localhost%s/api/services", addr)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-sigCh:
	}

	log.Println("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server.Shutdown(shutdownCtx)
}

func listServicesHandler(monitor *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(monitor.GetServices())
	}
}

func serviceDetailHandler(monitor *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceName := strings.TrimPrefix(r.URL.Path, "/api/services/")
		if serviceName == "" {
			http.Error(w, "Service name required", http.StatusBadRequest)
			return
		}

		status, err := monitor.QueryHealth(serviceName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(status)
	}
}

// eventsHandler streams service updates as SSE, one data frame per
// change, starting with the current state.
func eventsHandler(ctx context.Context, monitor *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		writeFrame := func(services []ServiceStatus) {
			data, _ := json.Marshal(services)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}

		writeFrame(monitor.GetServices())

		updates, unsubscribe := monitor.Subscribe()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.Context().Done():
				return
			case services := <-updates:
				writeFrame(services)
			}
		}
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Nucleus Service Monitor</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: 'SF Mono', 'Fira Code', Consolas, monospace; margin: 0; padding: 24px; background: #10141a; color: #c9d4e3; }
        .header { border: 1px solid #263042; border-radius: 6px; padding: 18px 22px; margin-bottom: 18px; background: #161c26; }
        .header h1 { margin: 0 0 6px; font-size: 20px; color: #e8eef7; }
        .header p { margin: 0; color: #7d8aa0; font-size: 13px; }
        .update-time { margin-top: 8px; color: #55647d; font-size: 11px; }
        .services { display: grid; gap: 12px; }
        .service { border: 1px solid #263042; border-left: 3px solid #2e9e5b; border-radius: 6px; padding: 14px 18px; background: #161c26; }
        .service.offline { border-left-color: #b33939; opacity: 0.55; }
        .service-name { font-size: 16px; font-weight: bold; color: #e8eef7; }
        .service-meta { color: #7d8aa0; font-size: 12px; margin: 4px 0; }
        .capabilities { display: flex; flex-wrap: wrap; gap: 6px; margin: 8px 0; }
        .capability { border: 1px solid #2d5a8a; color: #6aa7e8; padding: 1px 8px; border-radius: 10px; font-size: 11px; }
        .capability.commandexecution { border-color: #7b4f9e; color: #b38ae0; }
        .capability.temporaltraining { border-color: #2e7d4f; color: #63c78a; }
        .status { display: inline-block; margin-left: 8px; padding: 2px 8px; border-radius: 3px; font-size: 11px; font-weight: bold; text-transform: uppercase; }
        .status.online { background: #1d4a2e; color: #63c78a; }
        .status.busy { background: #5a4413; color: #e0b341; }
        .status.offline { background: #4a1d1d; color: #e07a7a; }
        .no-services { text-align: center; padding: 48px; color: #55647d; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🔍 Nucleus Service Monitor</h1>
        <p>Monitoreo en tiempo real de servicios del nucleo RazonbilstroOS</p>
        <div class="update-time" id="lastUpdate">Connecting...</div>
    </div>

    <div id="services" class="services">
        <div class="no-services">🔄 Waiting for service heartbeats...</div>
    </div>

    <script>
        const servicesContainer = document.getElementById('services');
        const lastUpdateEl = document.getElementById('lastUpdate');

        const eventSource = new EventSource('/api/events');

        eventSource.onmessage = function(event) {
            renderServices(JSON.parse(event.data));
            lastUpdateEl.textContent = 'Last update: ' + new Date().toLocaleTimeString();
        };

        eventSource.onerror = function() {
            lastUpdateEl.textContent = 'Connection error - retrying...';
        };

        function renderServices(services) {
            if (services.length === 0) {
                servicesContainer.innerHTML = '<div class="no-services">❌ No nucleus services detected</div>';
                return;
            }
            servicesContainer.innerHTML = services.map(buildCard).join('');
        }

        function buildCard(service) {
            const chips = (service.capabilities || []).map(function(cap) {
                return '<span class="capability ' + cap.replace(/-/g, '') + '">' + cap + '</span>';
            }).join('');

            const tty = service.tty_active ? '🖥️ TTY activa' : '🖥️ TTY inactiva';
            const cardClass = service.status === 'offline' ? 'service offline' : 'service';

            return '<div class="' + cardClass + '">' +
                '<div class="service-name">🧠 ' + service.service_name +
                '<span class="status ' + service.status + '">' + service.status + '</span></div>' +
                '<div class="service-meta">📊 v' + service.version + ' | ' + tty + '</div>' +
                '<div class="service-meta">🌐 ' + service.endpoint + ' | 📡 ' + service.nats_topic + '</div>' +
                '<div class="service-meta">⚡ ' + queueInfo(service) + ' | 💾 ' + resourceInfo(service) + '</div>' +
                '<div class="capabilities">' + chips + '</div>' +
                '<div class="service-meta">🕒 ' + agoLabel(service.last_seen) + ' | ⏱️ ' + uptimeLabel(service) + '</div>' +
                '</div>';
        }

        function agoLabel(lastSeenStr) {
            const diffSec = Math.floor((Date.now() - new Date(lastSeenStr)) / 1000);
            if (diffSec < 60) return diffSec + 's ago';
            if (diffSec < 3600) return Math.floor(diffSec / 60) + 'm ago';
            return Math.floor(diffSec / 3600) + 'h ago';
        }

        function queueInfo(service) {
            if (!service.backpressure) return 'Queue: idle';
            const bp = service.backpressure;
            return 'Queue: ' + (bp.pending_messages || 0) + ' pending, ' +
                (bp.active_processing || 0) + ' active (' + (bp.status || 'unknown') + ')';
        }

        function resourceInfo(service) {
            if (!service.resources) return 'Resources: unknown';
            const res = service.resources;
            const heap = res.heap_alloc_mb != null ? res.heap_alloc_mb.toFixed(1) : '?';
            return (res.goroutines || 0) + ' goroutines, ' + heap + ' MB heap';
        }

        function uptimeLabel(service) {
            if (!service.first_seen) return 'Uptime: unknown';
            const uptimeSec = Math.floor((Date.now() - new Date(service.first_seen)) / 1000);
            if (uptimeSec < 60) return 'Uptime: ' + uptimeSec + 's';
            if (uptimeSec < 3600) return 'Uptime: ' + Math.floor(uptimeSec / 60) + 'm';
            if (uptimeSec < 86400) return 'Uptime: ' + Math.floor(uptimeSec / 3600) + 'h';
            return 'Uptime: ' + Math.floor(uptimeSec / 86400) + 'd';
        }
    </script>
</body>
</html>`
