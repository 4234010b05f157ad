package ports

import (
	"context"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// LeadTransport delivers a JSON lead payload to the submission endpoint.
// Failures are reported as *domain.TransportError.
type LeadTransport interface {
	Send(ctx context.Context, payload []byte) (domain.LeadID, error)
}

// LeadTransportFunc adapts a function to LeadTransport.
type LeadTransportFunc func(ctx context.Context, payload []byte) (domain.LeadID, error)

func (f LeadTransportFunc) Send(ctx context.Context, payload []byte) (domain.LeadID, error) {
	return f(ctx, payload)
}
