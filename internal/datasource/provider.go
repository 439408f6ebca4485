// Package datasource provides the data backends analysis tasks read from.
//
// A Provider returns one typed Dataset per capability. The bundled
// MockProvider generates plausible market, trade, patent, trial, internal and
// web data deterministically from the subject, so runs are reproducible.
package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrison/researchflow/internal/models"
)

// ErrUnsupportedCapability is returned for capabilities a provider has no data for.
var ErrUnsupportedCapability = errors.New("capability not supported by data provider")

// ErrInjectedFault is returned when fault injection fails a fetch.
var ErrInjectedFault = errors.New("injected data source fault")

// Provider fetches the raw data behind one capability. Implementations must
// be safe for concurrent use by many tasks at once.
type Provider interface {
	Fetch(ctx context.Context, capability models.Capability, subject string, params map[string]string) (Dataset, error)
}

// Dataset is the typed result of a fetch.
type Dataset interface {
	// Capability returns the capability the data belongs to.
	Capability() models.Capability
	// Report renders the data as a plain-text report suitable for an analysis prompt.
	Report() string
	// SourceName names the upstream system the data came from.
	SourceName() string
}

// FetchError wraps a provider failure with the capability and subject.
type FetchError struct {
	Capability models.Capability
	Subject    string
	Err        error
}

// Error implements the error interface for FetchError.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s data for %s: %v", e.Capability, e.Subject, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
