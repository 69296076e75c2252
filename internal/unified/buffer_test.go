package unified

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferGrowsByDoubling(t *testing.T) {
	b := NewBuffer()
	assert.Equal(t, MinBufferSize, b.Len())

	b.Ensure(100)
	assert.Equal(t, MinBufferSize, b.Len(), "stays at the minimum for small requests")

	b.Ensure(5000)
	assert.Equal(t, MinBufferSize*2, b.Len())

	b.Ensure(20000)
	assert.Equal(t, MinBufferSize*8, b.Len())
}
