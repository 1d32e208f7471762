package entropy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShannon_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Shannon(nil))
	assert.Equal(t, 0.0, Shannon([]byte{}))
}

func TestShannon_Uniform(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	// One of each byte value: maximal entropy, normalized to 1.0.
	assert.InDelta(t, 1.0, Shannon(data), 1e-9)
}

func TestShannon_Constant(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, 4096)
	assert.Equal(t, 0.0, Shannon(data))
}

func TestShannon_Monotonic(t *testing.T) {
	text := []byte("the quick brown fox jumps over the lazy dog the quick brown fox")
	random := make([]byte, len(text))
	for i := range random {
		random[i] = byte(i * 97 % 256)
	}
	assert.Less(t, Shannon(text), Shannon(random))
}
