package wizard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guihenriquebr/sefra/pkg/wizard"
)

func TestNextFocus(t *testing.T) {
	tests := []struct {
		name        string
		count, cur  int
		shift       bool
		wantNext    int
		wantWrapped bool
	}{
		{"forward middle", 4, 1, false, 2, false},
		{"forward wraps last", 4, 3, false, 0, true},
		{"backward middle", 4, 2, true, 1, false},
		{"backward wraps first", 4, 0, true, 3, true},
		{"focus outside modal forward", 4, -1, false, 0, true},
		{"focus outside modal backward", 4, 9, true, 3, true},
		{"nothing focusable", 0, 0, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, wrapped := wizard.NextFocus(tt.count, tt.cur, tt.shift)
			assert.Equal(t, tt.wantNext, next)
			assert.Equal(t, tt.wantWrapped, wrapped)
		})
	}
}

func TestProgressFor(t *testing.T) {
	p := wizard.ProgressFor(1, 3)
	assert.Equal(t, "Passo 1 de 3", p.Label)
	assert.InDelta(t, 33.33, p.Percent, 0.01)

	p = wizard.ProgressFor(3, 3)
	assert.Equal(t, 100.0, p.Percent)

	p = wizard.ProgressFor(4, 3)
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, "Passo 3 de 3", p.Label)

	assert.Equal(t, wizard.Progress{}, wizard.ProgressFor(1, 0))
}
