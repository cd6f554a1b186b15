package compile

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestCompileReadError(t *testing.T) {
	wantErr := errors.New("boom")
	var out strings.Builder
	err := Compile("t", errReader{wantErr}, &out)
	require.ErrorIs(t, err, wantErr)
}

func TestCompileWriteError(t *testing.T) {
	wantErr := errors.New("boom")
	err := Compile("t", strings.NewReader("p hi\n"), errWriter{wantErr})
	require.ErrorIs(t, err, wantErr)
}

func TestCompileUserError(t *testing.T) {
	var out strings.Builder
	err := Compile("greeting.tmpl", strings.NewReader("div\n  p a\n p b\n"), &out)
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindUser, ce.Kind)
	assert.NotZero(t, ce.Line)
}

func TestCompileEmptyOK(t *testing.T) {
	var out strings.Builder
	require.NoError(t, Compile("t", strings.NewReader(""), &out))
	assert.Empty(t, out.String())
}

var _ io.Reader = errReader{}
var _ io.Writer = errWriter{}
