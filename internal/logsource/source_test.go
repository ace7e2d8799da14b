package logsource

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExpand_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages")
	writeFile(t, path, []byte("x\n"))
	writeFile(t, path+".1", []byte("y\n"))

	files, err := Expand(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestExpand_RotationOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages")
	for _, name := range []string{"messages", "messages.1", "messages.2.gz", "messages.9.gz", "messages.10.gz"} {
		writeFile(t, filepath.Join(dir, name), nil)
	}

	files, err := Expand(path, true)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"messages.10.gz", "messages.9.gz", "messages.2.gz", "messages.1", "messages"}, names)
}

func TestExpand_DatedRotations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages")
	for _, name := range []string{"messages", "messages-20261007", "messages-20260930.gz", "messages-20261014"} {
		writeFile(t, filepath.Join(dir, name), nil)
	}

	files, err := Expand(path, true)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"messages-20260930.gz", "messages-20261007", "messages-20261014", "messages"}, names)
}

func TestExpand_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages")
	writeFile(t, path, nil)
	writeFile(t, path+".1", nil)
	require.NoError(t, os.Mkdir(path+".d", 0700))

	files, err := Expand(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{path + ".1", path}, files)
}

func TestExpand_OnlyDirectoryMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages")
	require.NoError(t, os.Mkdir(path+".d", 0700))

	_, err := Expand(path, true)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestExpand_Missing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages")

	for _, rotated := range []bool{false, true} {
		_, err := Expand(path, rotated)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSourceNotFound)

		var srcErr *SourceError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, path, srcErr.Path)
		assert.Contains(t, err.Error(), path)
	}
}

func TestOpen_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages")
	writeFile(t, path, []byte("plain line\n"))

	rc, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "plain line\n", string(data))
}

func TestOpen_Compressed(t *testing.T) {
	dir := t.TempDir()
	content := "Jan  1 00:00:00 vpn pppd[1]: Exit.\n"

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"gzip", "messages.2.gz", gzipBytes(t, content)},
		{"zstd", "messages.3.zst", zstdBytes(t, content)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.data)
			assert.True(t, IsCompressed(path))

			rc, err := Open(path)
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, content, string(data))
		})
	}
}

func TestOpen_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.1.gz")
	writeFile(t, path, []byte("not gzip"))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open gzip stream")
}

func TestOpen_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	path := filepath.Join(t.TempDir(), "messages")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0000))

	_, err := Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourcePermission)
	assert.Contains(t, err.Error(), "try running as root")
}

func TestSourceError_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      *SourceError
		contains string
	}{
		{"not found", &SourceError{Path: "/var/log/messages", Err: ErrSourceNotFound}, "does not exist"},
		{"permission", &SourceError{Path: "/var/log/messages", Err: ErrSourcePermission}, "try running as root"},
		{"other", &SourceError{Path: "/var/log/messages", Err: errors.New("boom")}, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), "/var/log/messages")
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}
