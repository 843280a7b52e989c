// Package gateway talks to the external payment processor. The rest of the
// service treats it as an untrusted, latent remote system: every call takes
// a context, carries a bounded timeout and may fail with ErrUnavailable.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps timeouts and 5xx responses from the processor.
	// Retryable; never rolled back into local authoritative state.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrChargeNotFound means the processor does not know the charge.
	ErrChargeNotFound = errors.New("charge not found at gateway")

	// ErrRejected wraps 4xx responses: the processor understood the request
	// and declined it (expired card, bad source). Retrying the same request
	// will not help; the caller has to change it.
	ErrRejected = errors.New("payment gateway rejected request")
)

type ChargeStatus string

const (
	ChargeStatusPending    ChargeStatus = "pending"
	ChargeStatusSuccessful ChargeStatus = "successful"
	ChargeStatusFailed     ChargeStatus = "failed"
	ChargeStatusExpired    ChargeStatus = "expired"
	ChargeStatusReversed   ChargeStatus = "reversed"
)

type Card struct {
	Number          string
	Name            string
	ExpirationMonth int
	ExpirationYear  int
	SecurityCode    string
}

type Token struct {
	ID string `json:"id"`
}

type SourceRequest struct {
	Type     string
	Amount   int64
	Currency string
}

type Source struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	QRCodeURL string `json:"qr_code_url,omitempty"`
}

type ChargeRequest struct {
	Amount      int64
	Currency    string
	CardToken   string // set for card charges
	SourceID    string // set for source-backed charges
	ReturnURI   string
	Description string
	Metadata    map[string]any
}

type Charge struct {
	ID             string       `json:"id"`
	Status         ChargeStatus `json:"status"`
	Paid           bool         `json:"paid"`
	Amount         int64        `json:"amount"`
	Currency       string       `json:"currency"`
	AuthorizeURI   string       `json:"authorize_uri,omitempty"`
	FailureCode    string       `json:"failure_code,omitempty"`
	FailureMessage string       `json:"failure_message,omitempty"`
	Source         *Source      `json:"source,omitempty"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	PaidAt         *time.Time   `json:"paid_at,omitempty"`
}

// Client is the processor surface the service depends on. CancelCharge is
// best-effort everywhere it is called: its failure is logged, never allowed
// to block a local commit.
type Client interface {
	CreateToken(ctx context.Context, card Card) (*Token, error)
	CreateSource(ctx context.Context, req SourceRequest) (*Source, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error)
	CancelCharge(ctx context.Context, chargeID string) (*Charge, error)
}
