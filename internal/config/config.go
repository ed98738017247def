package config

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Service identity
	ServiceName string
	Version     string

	// NATS Configuration
	NatsURL        string
	Stream         string
	Subject        string
	Durable        string
	QueueGroup     string
	ResponsePrefix string
	MaxMsgs        int
	MaxAge         time.Duration
	AckWait        time.Duration
	MaxDeliver     int
	MaxAckPending  int
	Concurrency    int

	// HTTP Configuration
	HTTPAddr string

	// Database Configuration
	DBPath      string
	DatabaseURL string

	// Data Directory Configuration
	DataDir     string
	DatasetDir  string
	CorpusDir   string
	SessionDir  string
	ResultsDir  string
	ModelPath   string
	WatcherConf string

	// TTY nucleus
	TTYEnabled bool
	ShellPath  string

	// Monitoring Configuration
	MonitoringTopic       string
	BackpressureThreshold int64
	HeartbeatInterval     time.Duration
	LiveInterval          time.Duration
	PerceptionInterval    time.Duration

	// Watcher Configuration
	WatchPaths []string
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			slog.Warn("Could not load env file", "file", envFile, "error", err)
		} else {
			slog.Info("Environment loaded", "file", envFile)
		}
	}

	return &Config{
		ServiceName:           getEnv("SERVICE_NAME", "razonbilstro-nucleus"),
		Version:               getEnv("SERVICE_VERSION", "4.1"),
		NatsURL:               getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		Stream:                getEnv("STREAM_NAME", "NUCLEUS"),
		Subject:               getEnv("SUBJECT", "nucleus.requests.>"),
		Durable:               getEnv("QUEUE_DURABLE", "nucleus-wq"),
		QueueGroup:            getEnv("QUEUE_GROUP", "workers"),
		ResponsePrefix:        getEnv("RESPONSE_PREFIX", "nucleus.response"),
		MaxMsgs:               getEnvInt("QUEUE_MAX_MSGS", 2000),
		MaxAge:                getEnvDuration("QUEUE_MAX_AGE", "30s"),
		AckWait:               getEnvDuration("ACK_WAIT", "30s"),
		MaxDeliver:            getEnvInt("MAX_DELIVER", 5),
		MaxAckPending:         getEnvInt("MAX_ACK_PENDING", 64),
		Concurrency:           getEnvInt("WORKER_CONCURRENCY", 2),
		HTTPAddr:              getEnv("HTTP_ADDR", ":5000"),
		DBPath:                getEnv("DB_PATH", "data/api_tokens.db"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DataDir:               getEnv("DATA_DIR", "data"),
		DatasetDir:            getEnv("DATASET_DIR", "data/datasets"),
		CorpusDir:             getEnv("CORPUS_DIR", "data/corpora"),
		SessionDir:            getEnv("SESSION_DIR", "data/temporal_sessions"),
		ResultsDir:            getEnv("RESULTS_DIR", "data/training_results"),
		ModelPath:             getEnv("MODEL_PATH", "data/models/nucleus_model.json"),
		WatcherConf:           getEnv("WATCHER_CONFIG", "config/error_patterns.json"),
		TTYEnabled:            getEnvBool("TTY_ENABLED", true),
		ShellPath:             getEnv("NUCLEUS_SHELL", "/bin/bash"),
		MonitoringTopic:       getEnv("MONITORING_TOPIC", "monitoring.nucleus.backpressure"),
		BackpressureThreshold: int64(getEnvInt("BACKPRESSURE_THRESHOLD", 100)),
		HeartbeatInterval:     getEnvDuration("HEARTBEAT_INTERVAL", "30s"),
		LiveInterval:          getEnvDuration("LIVE_INTERVAL", "10s"),
		PerceptionInterval:    getEnvDuration("PERCEPTION_INTERVAL", "30s"),
		WatchPaths:            getEnvList("WATCH_LOGS", ""),
	}, nil
}

func loadDotEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key, defaultVal string) time.Duration {
	val := getEnv(key, defaultVal)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultVal)
	return d
}

func getEnvList(key, defaultVal string) []string {
	val := getEnv(key, defaultVal)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
