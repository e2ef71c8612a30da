package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, GetLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("warning"))
	assert.Equal(t, logrus.TraceLevel, GetLevel("trace"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("bogus"))
}

func TestSetupFallback(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	var buf bytes.Buffer
	closer := Setup(Params{LogLevel: "info", Fallback: &buf})
	require.NoError(t, closer.Close())

	logrus.Debug("hidden")
	logrus.Info("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestSetupFile(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	base := filepath.Join(t.TempDir(), "dash")
	closer := Setup(Params{LogFileName: base, LogLevel: "debug", LogFormatJSON: true})
	logrus.Debug("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(base + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
