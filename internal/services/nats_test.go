package services

import (
	"strings"
	"testing"
)

func TestOperationFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"nucleus.requests.chat", OpChat},
		{"nucleus.requests.execute", OpExecute},
		{"nucleus.requests.process", OpProcess},
		{"nucleus.requests", OpChat},
		{"nucleus.requests.other", OpChat},
	}

	for _, tt := range tests {
		if got := operationFromSubject(tt.subject); got != tt.want {
			t.Errorf("operationFromSubject(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestWorkerName(t *testing.T) {
	a := workerName(0)
	b := workerName(0)

	if !strings.HasPrefix(a, "nucleus-w0-") {
		t.Errorf("worker name %q should start with nucleus-w0-", a)
	}
	if a == b {
		t.Errorf("worker names should differ across calls, got %q twice", a)
	}
	if !strings.HasPrefix(workerName(3), "nucleus-w3-") {
		t.Errorf("worker name should carry its slot index")
	}
}
