package analytics

import (
	"context"
	"maps"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
	"github.com/guihenriquebr/sefra/pkg/validator"
)

// Standard pixel events for the conversion funnel.
const (
	PixelLead             = "Lead"
	PixelInitiateCheckout = "InitiateCheckout"
	PixelContact          = "Contact"
)

var pixelEvents = map[string]string{
	domain.EventLeadSubmitted: PixelLead,
	domain.EventLeadInitiated: PixelInitiateCheckout,
	domain.EventWhatsAppClick: PixelContact,
}

// PixelSink translates funnel events into standard pixel events and forwards
// them to Next under the name "pixel_<event>". Other events are dropped.
// Lead events carry the property value as conversion value in BRL.
type PixelSink struct {
	Next ports.EventSink
}

func (p PixelSink) Record(ctx context.Context, name string, attrs map[string]any) {
	if p.Next == nil {
		return
	}
	pixel, ok := pixelEvents[name]
	if !ok {
		return
	}

	out := map[string]any{
		"content_name":     "Consórcio Imobiliário",
		"content_category": "Financial Services",
		"currency":         "BRL",
	}
	maps.Copy(out, attrs)
	out["pixel_event"] = pixel
	if raw, ok := attrs[domain.FieldPropertyValue].(string); ok {
		if amount, parsed := validator.ParseAmount(raw); parsed && amount >= 0 {
			out["value"] = amount
		}
	}
	p.Next.Record(ctx, "pixel_"+pixel, out)
}
