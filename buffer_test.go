package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendAndRetrieve(t *testing.T) {
	b := NewBuffer()
	require.Equal(t, 0, b.ReadableBytes())

	b.AppendString("hello")
	assert.Equal(t, 5, b.ReadableBytes())
	assert.Equal(t, "hello", string(b.Peek()))

	b.Retrieve(2)
	assert.Equal(t, "llo", string(b.Peek()))

	s := b.RetrieveAllString()
	assert.Equal(t, "llo", s)
	assert.Equal(t, 0, b.ReadableBytes())
}

func TestBufferGrowsPastCapacity(t *testing.T) {
	b := NewBufferSize(4)
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	b.Append(payload)
	require.Equal(t, len(payload), b.ReadableBytes())
	assert.Equal(t, payload, b.Peek())
}

func TestBufferReclaimsSpaceBeforeGrowing(t *testing.T) {
	b := NewBufferSize(16)
	b.AppendString("0123456789012345")
	b.Retrieve(10)
	before := len(b.data)

	// The 10 retrieved bytes become prependable headroom; appending a
	// small payload should reclaim it rather than reallocate.
	b.AppendString("ab")
	assert.Equal(t, before, len(b.data))
	assert.Equal(t, "012345ab", string(b.Peek()))
}

func TestBufferPrependInt32(t *testing.T) {
	b := NewBuffer()
	b.AppendString("payload")
	b.PrependInt32(7)

	full := b.Peek()
	require.Len(t, full, 4+len("payload"))
	assert.Equal(t, []byte{0, 0, 0, 7}, full[:4])
	assert.Equal(t, "payload", string(full[4:]))
}

func TestBufferRetrieveBeyondReadableClampsToAll(t *testing.T) {
	b := NewBuffer()
	b.AppendString("abc")
	b.Retrieve(100)
	assert.Equal(t, 0, b.ReadableBytes())
}
