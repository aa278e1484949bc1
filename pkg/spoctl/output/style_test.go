package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorMode(t *testing.T) {
	mode, err := ParseColorMode("")
	require.NoError(t, err)
	assert.Equal(t, ColorAuto, mode)

	mode, err = ParseColorMode("Always")
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, mode)

	_, err = ParseColorMode("rainbow")
	require.Error(t, err)
}

func TestWriteError(t *testing.T) {
	t.Run("never", func(t *testing.T) {
		buf := &bytes.Buffer{}
		WriteError(buf, NewStyles(buf, ColorNever), errors.New("boom"))
		assert.Equal(t, "Error: boom\n", buf.String())
	})

	t.Run("always", func(t *testing.T) {
		buf := &bytes.Buffer{}
		WriteError(buf, NewStyles(buf, ColorAlways), errors.New("boom"))
		assert.Contains(t, buf.String(), "\x1b[")
		assert.Contains(t, buf.String(), "Error: boom")
	})

	t.Run("auto on a non-terminal", func(t *testing.T) {
		buf := &bytes.Buffer{}
		WriteError(buf, NewStyles(buf, ColorAuto), errors.New("boom"))
		assert.Equal(t, "Error: boom\n", buf.String())
	})

	t.Run("nil styles", func(t *testing.T) {
		buf := &bytes.Buffer{}
		WriteError(buf, nil, errors.New("boom"))
		assert.Equal(t, "Error: boom\n", buf.String())
	})
}
