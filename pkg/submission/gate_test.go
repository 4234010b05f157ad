package submission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/submission"
)

func TestGate(t *testing.T) {
	g := submission.NewGate()

	release, err := g.Acquire("a")
	require.NoError(t, err)
	assert.True(t, g.Held("a"))

	_, err = g.Acquire("a")
	assert.ErrorIs(t, err, domain.ErrSubmitInProgress)

	other, err := g.Acquire("b")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, g.Held("a"))

	_, err = g.Acquire("a")
	assert.NoError(t, err)
}
