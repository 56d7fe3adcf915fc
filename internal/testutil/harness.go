package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// DumpLogs prints captured log output when BUILDGRID_TEST_LOGS=true.
func DumpLogs(t *testing.T, b *SafeBuffer) {
	t.Helper()
	if os.Getenv("BUILDGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), b.String())
	}
}

// Workspace is a temporary directory tests build in.
type Workspace struct {
	t   *testing.T
	Dir string
}

// NewWorkspace creates an empty workspace removed when the test ends. The
// given files, keyed by relative path, are written into it.
func NewWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	ws := &Workspace{t: t, Dir: t.TempDir()}
	for name, content := range files {
		ws.WriteFile(name, content)
	}
	return ws
}

// Path returns the absolute path of a workspace file.
func (ws *Workspace) Path(name string) string {
	return filepath.Join(ws.Dir, name)
}

// WriteFile writes content to name, creating parent directories.
func (ws *Workspace) WriteFile(name, content string) string {
	ws.t.Helper()
	path := ws.Path(name)
	require.NoError(ws.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(ws.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ReadFile returns the contents of name.
func (ws *Workspace) ReadFile(name string) string {
	ws.t.Helper()
	data, err := os.ReadFile(ws.Path(name))
	require.NoError(ws.t, err)
	return string(data)
}

// Touch creates name if needed and sets its modification time to now.
func (ws *Workspace) Touch(name string) string {
	ws.t.Helper()
	path := ws.Path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ws.WriteFile(name, "")
	}
	now := time.Now()
	require.NoError(ws.t, os.Chtimes(path, now, now))
	return path
}

// Age moves the modification time of name d into the past.
func (ws *Workspace) Age(name string, d time.Duration) {
	ws.t.Helper()
	path := ws.Path(name)
	info, err := os.Stat(path)
	require.NoError(ws.t, err)
	then := info.ModTime().Add(-d)
	require.NoError(ws.t, os.Chtimes(path, then, then))
}

// Exists reports whether name exists.
func (ws *Workspace) Exists(name string) bool {
	_, err := os.Stat(ws.Path(name))
	return err == nil
}

// ModTime returns the modification time of name.
func (ws *Workspace) ModTime(name string) time.Time {
	ws.t.Helper()
	info, err := os.Stat(ws.Path(name))
	require.NoError(ws.t, err)
	return info.ModTime()
}
