package applog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfGatedByDebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	l.SetDebug(true)
	l.Debugf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestSeverityPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)
	l.Infof("hello")
	l.Warnf("careful")
	l.Errorf("boom")
	out := buf.String()
	assert.True(t, strings.Contains(out, "[INFO]"))
	assert.True(t, strings.Contains(out, "[WARNING]"))
	assert.True(t, strings.Contains(out, "[ERROR]"))
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	l := Nop()
	assert.False(t, l.DebugEnabled())
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
}
