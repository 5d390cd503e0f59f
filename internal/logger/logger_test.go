// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/company-intel/pkg/types"
)

func TestNewWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := New(types.LogConfig{Level: "debug"}, &buf)
	require.NoError(t, err)
	defer closeFn()

	log.WithFields(logrus.Fields{"scope": "news", "op": "discover", "target": "Capital One"}).Debug("discovered")

	line := buf.String()
	assert.Contains(t, line, "[DEBU] discovered op=discover scope=news target=\"Capital One\"")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(types.LogConfig{Level: "chatty"}, &buf)
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestNewAlsoWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "company-intel.log")
	var buf bytes.Buffer
	log, closeFn, err := New(types.LogConfig{Level: "info", File: path}, &buf)
	require.NoError(t, err)

	log.Warn("scope failed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] scope failed")
	assert.Equal(t, buf.String(), string(data))
}
