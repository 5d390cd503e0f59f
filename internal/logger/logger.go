// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger builds the process logger.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/company-intel/pkg/types"
)

// Formatter writes "[TIME] [LEVL] message key=value ..." lines with fields
// sorted by key.
type Formatter struct{}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] [%s] %s", entry.Time.Format("2006-01-02 15:04:05"), level, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(entry.Data[k])
		if strings.ContainsAny(v, " \t\n\"=") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New returns a logger writing to w and, when cfg.File is set, appending
// to that file as well. An unknown level falls back to info. The returned
// close function releases the file.
func New(cfg types.LogConfig, w io.Writer) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	log.SetFormatter(&Formatter{})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	closeFn := func() error { return nil }
	writers := []io.Writer{w}
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, closeFn, nil
}
