package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNew_Quiet(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, false)
	log.Debug("Executing web request", zap.String("url", "https://contoso.sharepoint.com"))
	log.Info("Retrieving apps...")

	assert.Equal(t, "Retrieving apps...\n", buf.String())
}

func TestNew_Verbose(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, true)
	log.Debug("Executing web request", zap.String("url", "https://contoso.sharepoint.com"))

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "Executing web request")
	assert.Contains(t, out, `"url": "https://contoso.sharepoint.com"`)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`, out)
}

func TestNew_NilWriter(t *testing.T) {
	log := New(nil, true)
	assert.NotPanics(t, func() { log.Info("ignored") })
}
