package watcher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultFeedbackBuffer bounds the detection channel.
const DefaultFeedbackBuffer = 64

// Category is one error family: its detection patterns, the feedback
// response and the automatic diagnostic action it triggers.
type Category struct {
	Patterns   []string `json:"patterns"`
	Response   string   `json:"response"`
	AutoAction string   `json:"auto_action"`
}

// Detection is a matched error pattern on a log line.
type Detection struct {
	ErrorType      string `json:"error_type"`
	Response       string `json:"response"`
	AutoAction     string `json:"auto_action"`
	MatchedPattern string `json:"matched_pattern"`
	Line           string `json:"line"`
	Path           string `json:"path,omitempty"`
}

// categoryOrder fixes match precedence across reloads.
var categoryOrder = []string{
	"network_errors",
	"permission_errors",
	"command_not_found",
	"service_errors",
	"syntax_errors",
}

func defaultPatterns() map[string]Category {
	return map[string]Category{
		"network_errors": {
			Patterns: []string{
				"Network is unreachable",
				"Connection refused",
				"No route to host",
				"Timeout",
			},
			Response:   "Error de conectividad detectado. Verificando configuración de red...",
			AutoAction: "network_check",
		},
		"permission_errors": {
			Patterns: []string{
				"Permission denied",
				"Operation not permitted",
				"Access denied",
			},
			Response:   "Error de permisos. Considerando elevación de privilegios...",
			AutoAction: "permission_fix",
		},
		"command_not_found": {
			Patterns: []string{
				"command not found",
				"No such file or directory",
				"not found in PATH",
			},
			Response:   "Comando no encontrado. Buscando alternativas...",
			AutoAction: "command_suggest",
		},
		"service_errors": {
			Patterns: []string{
				"Failed to start",
				"Service unavailable",
				"Connection to .* failed",
			},
			Response:   "Error de servicio detectado. Analizando estado del sistema...",
			AutoAction: "service_check",
		},
		"syntax_errors": {
			Patterns: []string{
				"Syntax error",
				"Invalid syntax",
				"Parse error",
			},
			Response:   "Error de sintaxis detectado. Sugiriendo corrección...",
			AutoAction: "syntax_help",
		},
	}
}

type compiledPattern struct {
	errorType string
	category  Category
	raw       string
	re        *regexp.Regexp
}

// Watcher scans log lines against the configured error patterns and
// follows files for new content. Detections go to a bounded feedback
// channel; when it fills up the oldest entries are dropped.
type Watcher struct {
	configPath string
	patterns   []compiledPattern
	feedback   chan Detection

	mu      sync.Mutex
	offsets map[string]int64
}

// New loads the pattern configuration, writing the defaults to configPath
// on first run so operators can tune them.
func New(configPath string, bufferSize int) (*Watcher, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultFeedbackBuffer
	}

	categories, err := loadOrInitPatterns(configPath)
	if err != nil {
		return nil, err
	}

	patterns, err := compile(categories)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		configPath: configPath,
		patterns:   patterns,
		feedback:   make(chan Detection, bufferSize),
		offsets:    make(map[string]int64),
	}, nil
}

func loadOrInitPatterns(configPath string) (map[string]Category, error) {
	if configPath == "" {
		return defaultPatterns(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		raw, err := json.MarshalIndent(defaultPatterns(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default patterns: %w", err)
		}
		if err := os.WriteFile(configPath, raw, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default patterns: %w", err)
		}
		slog.Info("Error patterns initialized", "path", configPath)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read error patterns: %w", err)
	}

	var categories map[string]Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse error patterns: %w", err)
	}
	return categories, nil
}

func compile(categories map[string]Category) ([]compiledPattern, error) {
	// Known categories first, additions from the config file after
	order := append([]string{}, categoryOrder...)
	var extra []string
	for name := range categories {
		known := false
		for _, o := range categoryOrder {
			if o == name {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	var patterns []compiledPattern
	for _, name := range order {
		category, ok := categories[name]
		if !ok {
			continue
		}
		for _, raw := range category.Patterns {
			re, err := regexp.Compile("(?i)" + raw)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q in %s: %w", raw, name, err)
			}
			patterns = append(patterns, compiledPattern{
				errorType: name,
				category:  category,
				raw:       raw,
				re:        re,
			})
		}
	}
	return patterns, nil
}

// Scan matches a log line against the patterns, returning the first hit.
func (w *Watcher) Scan(line string) *Detection {
	for _, p := range w.patterns {
		if p.re.MatchString(line) {
			return &Detection{
				ErrorType:      p.errorType,
				Response:       p.category.Response,
				AutoAction:     p.category.AutoAction,
				MatchedPattern: p.raw,
				Line:           line,
			}
		}
	}
	return nil
}

// Feedback returns the detection channel.
func (w *Watcher) Feedback() <-chan Detection {
	return w.feedback
}

// Watch follows the given log files until the context is cancelled,
// scanning appended lines and publishing detections.
func (w *Watcher) Watch(ctx context.Context, paths []string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	watched := make(map[string]bool)
	for _, path := range paths {
		if err := w.track(fsw, path); err != nil {
			slog.Warn("Failed to track log file", "path", path, "error", err)
			continue
		}
		watched[path] = true
	}
	if len(watched) == 0 {
		return fmt.Errorf("no log files could be watched")
	}

	slog.Info("Log watcher started", "files", len(watched))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Log watcher stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !watched[event.Name] {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// Rotated: start over from the top
				w.mu.Lock()
				w.offsets[event.Name] = 0
				w.mu.Unlock()
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.readNew(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

// track prepares a log file for following: it is created if missing, the
// offset starts at the current end, and its directory is watched so
// rotation shows up as a Create event.
func (w *Watcher) track(fsw *fsnotify.Watcher, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.offsets[path] = info.Size()
	w.mu.Unlock()

	return fsw.Add(filepath.Dir(path))
}

func (w *Watcher) readNew(path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Failed to open log file", "path", path, "error", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}

	w.mu.Lock()
	offset := w.offsets[path]
	w.mu.Unlock()

	if info.Size() < offset {
		// Truncated underneath us
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if detection := w.Scan(line); detection != nil {
			detection.Path = path
			slog.Info("Error pattern detected",
				"type", detection.ErrorType,
				"pattern", detection.MatchedPattern,
				"path", path)
			w.publish(*detection)
		}
	}

	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.offsets[path] = pos
	w.mu.Unlock()
}

// publish delivers a detection, dropping the oldest queued entry when the
// channel is full.
func (w *Watcher) publish(d Detection) {
	for {
		select {
		case w.feedback <- d:
			return
		default:
			select {
			case <-w.feedback:
			default:
			}
		}
	}
}
