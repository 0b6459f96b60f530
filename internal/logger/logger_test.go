package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_DebugGatedByVerbose(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	defer SetOutput(os.Stderr)
	defer SetVerbose(false)

	l := New("test")
	SetVerbose(false)
	l.Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	l.Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] [test] shown 2")
}

func TestLogger_LevelsAlwaysOn(t *testing.T) {
	buf := new(bytes.Buffer)
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	l := New("rag-index")
	l.Info("run start")
	l.Warn("slow")
	l.Error("failed: %s", "boom")

	out := buf.String()
	assert.Contains(t, out, "[INFO] [rag-index] run start")
	assert.Contains(t, out, "[WARN] [rag-index] slow")
	assert.Contains(t, out, "[ERROR] [rag-index] failed: boom")
}
