package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const actionTimeout = 30 * time.Second

// autoActions maps an action name to the diagnostic commands it runs.
var autoActions = map[string][]string{
	"network_check": {
		"ping -c 3 8.8.8.8",
		"ip route show",
		"systemctl status NetworkManager",
	},
	"permission_fix": {
		"whoami",
		"id",
		"ls -la",
	},
	"command_suggest": {
		"which python3 python pip3 pip",
		"apt list --installed | grep -i tool",
		"dpkg -l | grep -i security",
	},
	"service_check": {
		"systemctl --failed",
		"systemctl status",
		"journalctl -n 10",
	},
	"syntax_help": {
		"echo 'Verificando sintaxis de comando anterior'",
	},
}

// ActionResult is the outcome of one diagnostic command.
type ActionResult struct {
	Action   string `json:"action"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// ExecuteAutoAction runs the diagnostic commands mapped to an action and
// appends the outcomes to the feedback log.
func ExecuteAutoAction(ctx context.Context, actionType, feedbackLog string) []ActionResult {
	commands, ok := autoActions[actionType]
	if !ok {
		slog.Warn("Unknown auto action", "action", actionType)
		return nil
	}

	slog.Info("Executing auto action", "action", actionType, "commands", len(commands))

	var results []ActionResult
	for _, command := range commands {
		cmdCtx, cancel := context.WithTimeout(ctx, actionTimeout)
		out, err := exec.CommandContext(cmdCtx, "sh", "-c", command).CombinedOutput()
		cancel()

		exitCode := 0
		if err != nil {
			exitCode = -1
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			}
		}

		result := ActionResult{
			Action:   actionType,
			Command:  command,
			ExitCode: exitCode,
			Output:   string(out),
		}
		results = append(results, result)
		logFeedback(feedbackLog, result)
	}
	return results
}

func logFeedback(path string, result ActionResult) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		slog.Warn("Failed to open feedback log", "path", path, "error", err)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] ACTION: %s | CMD: %s | EXIT: %d\n",
		timestamp, result.Action, result.Command, result.ExitCode)
	if result.Output != "" {
		output := result.Output
		if len(output) > 200 {
			output = output[:200] + "..."
		}
		fmt.Fprintf(f, "[%s] OUTPUT: %s\n", timestamp, output)
	}
}
