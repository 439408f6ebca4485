// Package analysis provides the text-generation backends used by analysts and
// the synthesizer.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable is returned by a backend that cannot serve requests.
var ErrUnavailable = errors.New("analysis service unavailable")

// Backend names accepted by New
const (
	BackendTemplate = "template"
	BackendCLI      = "cli"
	BackendNone     = "none"
)

// Prompt is one analysis request.
type Prompt struct {
	Label  string   // Short name of what is being analysed, e.g. "Market Intelligence"
	System string   // Role instructions
	User   string   // Request body including the source data
	Facts  []string // Structured facts extracted from the source data (optional)
}

// Service turns a prompt into analysis text. Implementations must be safe
// for concurrent use and should honour ctx, since calls may be slow.
type Service interface {
	Analyze(ctx context.Context, p Prompt) (string, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	CLIPath string
	Timeout time.Duration
}

// New builds the backend named in opts. An empty backend selects the
// offline template backend.
func New(opts Options) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendTemplate:
		return NewTemplateService(), nil
	case BackendCLI:
		svc := NewCLIService(opts.CLIPath)
		svc.Timeout = opts.Timeout
		return svc, nil
	case BackendNone:
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown analysis backend %q (valid: %s, %s, %s)",
			opts.Backend, BackendTemplate, BackendCLI, BackendNone)
	}
}

// Unavailable is a backend that always fails with ErrUnavailable.
type Unavailable struct{}

// Analyze implements Service.
func (Unavailable) Analyze(context.Context, Prompt) (string, error) {
	return "", ErrUnavailable
}
