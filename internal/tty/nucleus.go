package tty

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	commandSettle = 500 * time.Millisecond
	readBufSize   = 4096
)

// commandIndicators mark input that should run on the shell instead of
// going through the conversational path. Entries keep their trailing
// space so "ls -la" matches but "lsof" style words do not.
var commandIndicators = []string{
	"cd ", "ls ", "pwd", "mkdir ", "rm ", "cp ", "mv ", "chmod ", "chown ",
	"sudo ", "apt ", "pip ", "npm ", "git ", "docker ", "systemctl ",
	"ps ", "kill ", "top ", "htop ", "df ", "du ", "free ", "uname ",
	"find ", "grep ", "awk ", "sed ", "cat ", "echo ", "touch ", "vim ",
	"nano ", "wget ", "curl ", "ssh ", "scp ", "rsync ", "tar ", "zip ",
	"mount ", "python ", "nmap ", "msfconsole",
}

// ExecuteResult is the outcome of running one line on the shell.
type ExecuteResult struct {
	Success bool   `json:"success"`
	Command string `json:"command"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// ProcessResult classifies processed input as command or conversation.
type ProcessResult struct {
	Type      string         `json:"type"`
	Input     string         `json:"input"`
	Response  string         `json:"response,omitempty"`
	Execution *ExecuteResult `json:"execution,omitempty"`
}

// Nucleus owns the service's interactive shell on a pseudo-terminal.
// Command execution is serialized so output reads stay paired with the
// line that produced them.
type Nucleus struct {
	mu     sync.Mutex
	shell  string
	cmd    *exec.Cmd
	ptmx   *os.File
	active bool
}

func NewNucleus(shellPath string) *Nucleus {
	if shellPath == "" {
		shellPath = "/bin/bash"
	}
	return &Nucleus{shell: shellPath}
}

// Start launches the shell on a fresh pty. Failure leaves the nucleus in
// conversation-only mode.
func (n *Nucleus) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.active {
		return nil
	}

	cmd := exec.Command(n.shell)
	cmd.Env = append(os.Environ(),
		"PS1=[RazonbilstroOS]$ ",
		"TERM=xterm-256color",
	)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}

	n.cmd = cmd
	n.ptmx = ptmx
	n.active = true

	slog.Info("TTY shell started", "shell", n.shell, "pid", cmd.Process.Pid)
	return nil
}

// Active reports whether the shell is running.
func (n *Nucleus) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// ExecuteCommand writes the command to the shell, waits for it to settle
// and returns up to one buffer of output.
func (n *Nucleus) ExecuteCommand(command string) ExecuteResult {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		return ExecuteResult{Success: false, Command: command, Error: "TTY no activo"}
	}

	if _, err := n.ptmx.Write([]byte(command + "\n")); err != nil {
		return ExecuteResult{Success: false, Command: command, Error: err.Error()}
	}

	time.Sleep(commandSettle)

	buf := make([]byte, readBufSize)
	if err := n.ptmx.SetReadDeadline(time.Now().Add(time.Second)); err == nil {
		defer n.ptmx.SetReadDeadline(time.Time{})
	}
	read, err := n.ptmx.Read(buf)
	if err != nil && read == 0 {
		return ExecuteResult{Success: false, Command: command, Error: err.Error()}
	}

	return ExecuteResult{
		Success: true,
		Command: command,
		Output:  string(buf[:read]),
	}
}

// ProcessInput routes input to the shell when it looks like a system
// command and to the conversational path otherwise. Without a running
// shell everything is handled conversationally.
func (n *Nucleus) ProcessInput(text string) ProcessResult {
	if IsSystemCommand(text) && n.Active() {
		result := n.ExecuteCommand(text)
		return ProcessResult{
			Type:      "command",
			Input:     text,
			Execution: &result,
		}
	}

	return ProcessResult{
		Type:     "conversation",
		Input:    text,
		Response: ConversationalResponse(text),
	}
}

// Stop terminates the shell and closes the pty.
func (n *Nucleus) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		return
	}
	n.active = false

	if n.cmd != nil && n.cmd.Process != nil {
		if err := n.cmd.Process.Kill(); err != nil {
			slog.Warn("Failed to kill shell process", "error", err)
		}
		n.cmd.Wait()
	}
	if n.ptmx != nil {
		n.ptmx.Close()
	}

	slog.Info("TTY shell stopped", "shell", n.shell)
}

// IsSystemCommand reports whether the text starts with a known command
// indicator.
func IsSystemCommand(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	for _, indicator := range commandIndicators {
		if strings.HasPrefix(trimmed, indicator) {
			return true
		}
	}
	return false
}

// ConversationalResponse is the canned acknowledgement for non-command input.
func ConversationalResponse(text string) string {
	return fmt.Sprintf("He procesado su solicitud: %s", text)
}
