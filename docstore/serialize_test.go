package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	doc := NewDoc()
	doc.Set("_id", "abc123")
	doc.Set("title", "line one\nline two") // embedded newline must survive one-line-per-doc storage
	doc.Set("count", 3.0)
	doc.Set("active", true)
	doc.Set("tags", Array{"a", "b"})
	doc.Set("nothing", Null{})
	doc.Set("skip", Undefined{})
	doc.Set("when", Now())

	line, err := Serialize(doc)
	require.NoError(t, err)
	assert.NotContains(t, line, "\n")

	back, err := Deserialize(line)
	require.NoError(t, err)
	decoded, ok := back.(*Doc)
	require.True(t, ok)

	assert.Equal(t, "abc123", decoded.GetOr("_id"))
	assert.Equal(t, "line one\nline two", decoded.GetOr("title"))
	assert.Equal(t, 3.0, decoded.GetOr("count"))
	assert.Equal(t, true, decoded.GetOr("active"))
	assert.Equal(t, Array{"a", "b"}, decoded.GetOr("tags"))
	assert.Equal(t, Null{}, decoded.GetOr("nothing"))
	_, hasSkip := decoded.Get("skip")
	assert.False(t, hasSkip, "undefined field must be omitted from the serialized form")

	ts, ok := decoded.GetOr("when").(Timestamp)
	require.True(t, ok)
	assert.WithinDuration(t, doc.GetOr("when").(Timestamp).Time(), ts.Time(), 0)
}

func TestDeserializeMalformedLine(t *testing.T) {
	_, err := Deserialize("{not valid json")
	assert.Error(t, err)
}

func TestDeserializeDateSentinel(t *testing.T) {
	v, err := Deserialize(`{"$$date":1000}`)
	require.NoError(t, err)
	ts, ok := v.(Timestamp)
	require.True(t, ok)
	assert.Equal(t, int64(1000), ts.UnixMilli())
}
