package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.PutUint32(0xdeadbeef)
	w.PutInt32(-12345)
	w.PutUint64(0x0102030405060708)
	w.PutInt64(-1)
	w.PutBytes([]byte{1, 2, 3})
	require.NoError(t, w.Err())

	r := NewReader(&buf)
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32())
	assert.Equal(t, int32(-12345), r.Int32())
	assert.Equal(t, uint64(0x0102030405060708), r.Uint64())
	assert.Equal(t, int64(-1), r.Int64())
	assert.Equal(t, []byte{1, 2, 3}, r.Bytes(3))
	require.NoError(t, r.Err())
}

func TestReaderShortReadSticksError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	r.Uint32()
	require.Error(t, r.Err())
	// Subsequent calls don't panic and keep returning zero.
	assert.Equal(t, uint32(0), r.Uint32())
}

func TestLittleEndianByteOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.PutUint32(1)
	assert.Equal(t, []byte{1, 0, 0, 0}, buf.Bytes())
}
