package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]interface{}
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := OperationTimer("simulate:BTC-USD", log)
	done()

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "simulate:BTC-USD", entries[0]["operation"])
	assert.Equal(t, "Operation completed", entries[0]["message"])
}

func TestMeasureDBQuery(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := MeasureDBQuery("replace_all", log)
	done(6)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "replace_all", entries[0]["query"])
	assert.Equal(t, float64(6), entries[0]["rows_affected"])
}

func TestTimers_SilentAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	OperationTimer("quick", log)()
	MeasureDBQuery("quick", log)(1)

	assert.Zero(t, buf.Len())
}
