package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("push failed", F("item", "a"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "push failed | item=a")
	assert.Contains(t, out, "logger_test.go")
}

func TestLogger_WithFieldsKeepsParentFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: DEBUG, Output: &buf})
	require.NoError(t, err)

	child := l.WithFields(F("component", "relay"))
	child.Info("installed", F("assets", 6))
	l.Info("plain")

	assert.Contains(t, buf.String(), "installed | component=relay assets=6")
	assert.Contains(t, buf.String(), "plain\n")
}

func TestLogger_RotatesWhenFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0644))

	l, err := New(Config{Level: INFO, FilePath: path, MaxSize: 32, MaxBackups: 2})
	require.NoError(t, err)
	defer l.Close()

	l.Info("fresh")

	_, err = os.Stat(path + ".1")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fresh")
}

func TestDiagnostics_RingKeepsNewest(t *testing.T) {
	d := NewDiagnostics(2)
	d.record(WARN, "one", nil)
	d.record(WARN, "two", nil)
	d.record(ERROR, "three", []Field{F("k", 1)})

	recent := d.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three (k=1)", recent[1].Message)

	last, ok := d.Last()
	require.True(t, ok)
	assert.Equal(t, ERROR, last.Level)

	d.Reset()
	_, ok = d.Last()
	assert.False(t, ok)
}

func TestLogger_WarningsReachDiagnosticsBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: ERROR, Output: &buf})
	require.NoError(t, err)
	l.diag = NewDiagnostics(4)

	l.Warn("offline")

	assert.Empty(t, buf.String())
	last, ok := l.diag.Last()
	require.True(t, ok)
	assert.Equal(t, "offline", last.Message)
}
