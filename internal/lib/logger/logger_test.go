package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(EnvProd, &buf)

	log.Debug("hidden")
	log.Info("login succeeded", "user_uid", "u-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "login succeeded", entry["msg"])
	assert.Equal(t, "u-1", entry["user_uid"])
}

func TestNew_LocalWritesDebugText(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(EnvLocal, &buf)

	log.Debug("token validated")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `msg="token validated"`)
}
