package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
)

// Masked replaces every masked value.
const Masked = "***"

// DefaultPIIPatterns match the personal fields of the simulator form.
var DefaultPIIPatterns = []string{"^nome$", "^email$", "^telefone$"}

// CompilePatterns compiles key patterns for Mask.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		out[i] = re
	}
	return out, nil
}

// Mask returns a copy of fields with the values of matching keys replaced.
func Mask(fields map[string]string, patterns []*regexp.Regexp) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
		for _, p := range patterns {
			if p.MatchString(k) {
				out[k] = Masked
				break
			}
		}
	}
	return out
}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks matching record fields of sessions that reached the
// success step. Those records have been delivered already; sessions still in
// progress are stored untouched because the wizard needs their values.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if state.Status != domain.StatusSuccess {
		return m.next.Save(ctx, sessionID, state)
	}
	masked := state.Snapshot()
	masked.Record.Fields = Mask(state.Record.Fields, m.patterns)
	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
