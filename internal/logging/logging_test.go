package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New("production", &buf).Info("image uploaded", "key", "k1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "image uploaded", line["msg"])
	assert.Equal(t, "k1", line["key"])
}

func TestNew_DevelopmentWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	New("development", &buf).Debug("file stored", "path", "/usr/uploads/a.txt")

	out := buf.String()
	assert.Contains(t, out, "file stored")
	assert.Contains(t, out, "path=/usr/uploads/a.txt")
	assert.NotContains(t, out, "\x1b[", "no colour codes when not writing to a terminal")
}
