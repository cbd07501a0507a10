package plc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	v, err := parsePayload([]byte("1050"))
	require.NoError(t, err)
	assert.Equal(t, 1050.0, v)

	v, err = parsePayload([]byte("  1.2345 \n"))
	require.NoError(t, err)
	assert.Equal(t, 1.2345, v)

	v, err = parsePayload([]byte(`{"value": 42, "ts": "2026-03-10T06:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	_, err = parsePayload([]byte("not-a-number"))
	assert.Error(t, err)
}
