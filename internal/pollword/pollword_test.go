package pollword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateIntersectsInterest(t *testing.T) {
	b := New()
	cellA := b.Register("a", 0b0001)
	cellB := b.Register("b", 0b0010)

	b.Update(0b0001)
	assert.Equal(t, Mask(0b0001), cellA.Peek())
	assert.Equal(t, Mask(0), cellB.Peek())

	b.Update(0b0010)
	assert.Equal(t, Mask(0b0001), cellA.Peek(), "unaffected by unrelated bit")
	assert.Equal(t, Mask(0b0010), cellB.Peek())
}

func TestTakeClears(t *testing.T) {
	b := New()
	cell := b.Register("a", 0xFFFF)
	b.Update(0x0001)
	assert.Equal(t, Mask(0x0001), cell.Take())
	assert.Equal(t, Mask(0), cell.Peek())
}

func TestUnregisterAndFinalise(t *testing.T) {
	b := New()
	b.Register("a", 0xFFFF)
	err := b.Finalise()
	require.Error(t, err)
	var regErr *ErrClientsRegistered
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, 1, regErr.Count)

	b.Unregister("a")
	assert.NoError(t, b.Finalise())
	assert.Equal(t, 0, b.NumRegistered())
}
