package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelabs/sage/pkg/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rating := 7.5
	header := types.Header{
		Type:          types.FamilyDomain,
		Version:       3,
		SchemaVersion: 2,
		LastUpdated:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Domain:        "Health / Body",
		Status:        "stable",
		Rating:        &rating,
		Tags:          []string{"sleep", "exercise"},
	}
	body := "## Notes\n\nSleep improving.\n"

	data, err := Encode(header, body)
	require.NoError(t, err)

	got, gotBody := Decode(data)
	assert.Equal(t, header.Type, got.Type)
	assert.Equal(t, header.Version, got.Version)
	assert.Equal(t, header.SchemaVersion, got.SchemaVersion)
	assert.True(t, header.LastUpdated.Equal(got.LastUpdated))
	assert.Equal(t, header.Domain, got.Domain)
	assert.Equal(t, header.Status, got.Status)
	require.NotNil(t, got.Rating)
	assert.Equal(t, rating, *got.Rating)
	assert.Equal(t, header.Tags, got.Tags)
	assert.Equal(t, body, gotBody)
}

func TestDecode_NoHeader(t *testing.T) {
	header, body := Decode([]byte("just some text"))
	assert.Zero(t, header.Version)
	assert.Equal(t, "just some text", body)
}

func TestDecode_UnknownKeysSurviveInRest(t *testing.T) {
	raw := "---\ntype: domain\nversion: 1\nschema_version: 1\nlast_updated: 2026-03-01T00:00:00Z\nfuture_field: hello\n---\nbody\n"
	header, body := Decode([]byte(raw))
	assert.Equal(t, types.FamilyDomain, header.Type)
	assert.Equal(t, "hello", header.Rest["future_field"])
	assert.Equal(t, "body\n", body)
}

func TestDecodeRaw(t *testing.T) {
	raw := "---\ntype: domain\nversion: 4\n---\nbody"
	m, body := DecodeRaw([]byte(raw))
	require.NotNil(t, m)
	assert.Equal(t, "domain", m["type"])
	assert.Equal(t, 4, m["version"])
	assert.Equal(t, "body", body)
}

func TestSanitizeBody_StripsDelimiterLines(t *testing.T) {
	body := "intro\n---\nattempted injection: true\n --- \nend"
	got := SanitizeBody(body)
	assert.Equal(t, "intro\nattempted injection: true\nend", got)

	// A horizontal rule longer than the delimiter is left alone.
	assert.Equal(t, "a\n----\nb", SanitizeBody("a\n----\nb"))
}

func TestEncode_SanitizesBody(t *testing.T) {
	data, err := Encode(types.Header{Type: types.FamilyCapture, Version: 1, SchemaVersion: 1}, "x\n---\ntype: overview\n")
	require.NoError(t, err)

	header, body := Decode(data)
	assert.Equal(t, types.FamilyCapture, header.Type)
	assert.NotContains(t, body, "\n---\n")
	assert.Contains(t, body, "type: overview")
}
