package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCLIPath is the LLM command-line client invoked by CLIService.
const DefaultCLIPath = "claude"

// CLIService shells out to an LLM command-line client in print mode and
// reads its JSON envelope. Safe for concurrent use.
type CLIService struct {
	// Path to the CLI binary. Defaults to DefaultCLIPath (found in PATH).
	Path string

	// Timeout bounds each invocation in addition to the caller's context.
	Timeout time.Duration
}

// NewCLIService creates a CLIService for the binary at path.
func NewCLIService(path string) *CLIService {
	if path == "" {
		path = DefaultCLIPath
	}
	return &CLIService{Path: path}
}

// Analyze implements Service.
func (s *CLIService) Analyze(ctx context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(p.User) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := []string{}
	if p.System != "" {
		args = append(args, "--system-prompt", p.System)
	}
	args = append(args, "-p", p.User, "--output-format", "json")

	path := s.Path
	if path == "" {
		path = DefaultCLIPath
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = 2 * time.Second
	setCleanEnv(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("analysis cli: %w", ctx.Err())
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("analysis cli failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	text := parseOutput(stdout.Bytes())
	if text == "" {
		return "", fmt.Errorf("analysis cli returned empty output")
	}
	return text, nil
}

// cliEnvelope is the JSON printed by the CLI with --output-format json.
type cliEnvelope struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// parseOutput extracts the text from a JSON envelope, falling back to the raw
// output when it is not JSON.
func parseOutput(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		var env cliEnvelope
		if err := json.Unmarshal(trimmed[start:end+1], &env); err == nil {
			if env.Result != "" {
				return strings.TrimSpace(env.Result)
			}
			if env.Content != "" {
				return strings.TrimSpace(env.Content)
			}
		}
	}
	return string(trimmed)
}

// cliTmpDir is a dedicated TMPDIR for CLI invocations. Editor socket files in
// the shared temp directory can crash some LLM CLIs.
var cliTmpDir = filepath.Join(os.TempDir(), "researchflow-cli")

// setCleanEnv copies the environment with TMPDIR pointed at cliTmpDir.
func setCleanEnv(cmd *exec.Cmd) {
	_ = os.MkdirAll(cliTmpDir, 0o755)

	cmd.Env = os.Environ()
	for i, env := range cmd.Env {
		if strings.HasPrefix(env, "TMPDIR=") {
			cmd.Env[i] = "TMPDIR=" + cliTmpDir
			return
		}
	}
	cmd.Env = append(cmd.Env, "TMPDIR="+cliTmpDir)
}
