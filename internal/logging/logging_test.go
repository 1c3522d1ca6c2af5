package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ca-srg/mailscope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutFile(t *testing.T) {
	cleanup, err := Setup(&types.Config{})
	require.NoError(t, err)
	require.NoError(t, cleanup())
	assert.Equal(t, os.Stdout, Output())
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mailscope.log")
	cleanup, err := Setup(&types.Config{LogFile: path, LogMaxSizeMB: 1})
	require.NoError(t, err)

	New("test").Printf("hello %s", "file")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `\[test\] \d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} hello file`, string(data))
}

func TestSetupWithConsole(t *testing.T) {
	var console bytes.Buffer
	cleanup, err := SetupWithConsole(&types.Config{}, &console)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Setup(nil) })

	New("cli").Print("to console")
	require.NoError(t, cleanup())
	assert.Regexp(t, `^\[cli\] \d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} to console\n$`, console.String())
}

func TestNewPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	cleanup, err := SetupWithConsole(nil, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Setup(nil) })

	New("search").Println("query failed")
	require.NoError(t, cleanup())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[search] "), out)
	assert.True(t, strings.HasSuffix(out, " query failed\n"), out)
}
