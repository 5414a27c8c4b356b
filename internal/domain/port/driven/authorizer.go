package driven

import (
	"context"

	"github.com/ericfisherdev/payvault/internal/domain/model"
)

// Authorizer defines the driven port for the interactive token-issuing flow.
// The consent UI itself is an external collaborator; implementations only
// drive the exchange and hand back the resulting credential.
type Authorizer interface {
	// Authorize runs one interactive authorization flow and returns the
	// acquired credential. Returns an error matching model.ErrAuthDenied when
	// the user declines or the flow errors, and model.ErrAuthUnavailable when
	// the provider is not configured or fails to initialize.
	Authorize(ctx context.Context) (model.Credential, error)
}
