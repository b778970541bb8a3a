package ports

import (
	"context"
	"fmt"

	"github.com/panelprompt/auth-api/internal/core/domain"
)

// IdentityProvider is the account half of the external service.
type IdentityProvider interface {
	// CreateAccount registers email+password and attaches metadata to the account.
	CreateAccount(ctx context.Context, email, password string, metadata map[string]any) (*domain.Identity, error)
	// VerifyCredential checks email+password against the provider.
	VerifyCredential(ctx context.Context, email, password string) (*domain.Identity, error)
}

// TableStore is the row-oriented half of the external service.
type TableStore interface {
	Insert(ctx context.Context, table string, row any) error
	// SelectEq returns at most limit rows where column == value, projected to columns.
	SelectEq(ctx context.Context, table string, columns []string, column, value string, limit int) ([]map[string]any, error)
}

// Gateway is a request-scoped handle to the identity and storage capabilities.
type Gateway interface {
	Identity() IdentityProvider
	Storage() TableStore
}

// GatewayBuilder builds a Gateway. It returns domain.ErrConfiguration when
// the provider secrets are missing, before any outbound call is attempted.
type GatewayBuilder interface {
	Build(ctx context.Context) (Gateway, error)
}

// FailureKind is the adapter's classification of a provider failure.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureAlreadyExists
	FailureEmailUnconfirmed
	FailurePolicyDenied
	FailureUnauthenticated
	FailureUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case FailureAlreadyExists:
		return "already_exists"
	case FailureEmailUnconfirmed:
		return "email_unconfirmed"
	case FailurePolicyDenied:
		return "policy_denied"
	case FailureUnauthenticated:
		return "unauthenticated"
	case FailureUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProviderError is the normalized failure returned by gateway adapters.
// Code and Message are the provider's raw values and must not reach HTTP clients.
type ProviderError struct {
	Op      string
	Kind    FailureKind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (status %d, code %s): %s", e.Op, e.Kind, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
