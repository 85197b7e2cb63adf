package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plc-copilot/internal/types"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store, sid string) {
	t.Helper()
	ctx := context.Background()

	msgs, err := s.History(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	want := []types.Message{
		{Type: "user", Content: "blink a lamp every second"},
		{Type: "assistant", Content: "Lamp toggles on a 10-scan counter."},
		{Type: "assistant", Content: "⚠️ Validation Failed:\nline 3"},
	}
	for _, m := range want {
		require.NoError(t, s.Append(ctx, sid, m))
	}
	got, err := s.History(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	theme, err := s.Theme(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme, theme)

	require.NoError(t, s.SetTheme(ctx, sid, " Dark "))
	theme, err = s.Theme(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)
	assert.ErrorIs(t, s.SetTheme(ctx, sid, "solarized"), ErrInvalidTheme)

	require.NoError(t, s.Clear(ctx, sid))
	got, err = s.History(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, got)

	theme, err = s.Theme(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme, "clearing the transcript keeps the theme")

	assert.ErrorIs(t, s.Append(ctx, "../etc/passwd", types.Message{}), ErrInvalidSession)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0), "mem-session")
}

func TestMemoryStore_Trim(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	for _, c := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, "s", types.Message{Type: "user", Content: c}))
	}
	got, err := s.History(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []types.Message{{Type: "user", Content: "b"}, {Type: "user", Content: "c"}}, got)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)
	exerciseStore(t, s, "file-session")
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, "abc", types.Message{Type: "user", Content: "hello"}))

	second, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	got, err := second.History(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []types.Message{{Type: "user", Content: "hello"}}, got)

	info, err := os.Stat(filepath.Join(dir, "abc.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_ClearWithoutThemeRemovesFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "abc", types.Message{Type: "user", Content: "x"}))
	require.NoError(t, s.Clear(ctx, "abc"))
	_, err = os.Stat(filepath.Join(dir, "abc.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.st")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("Motor := Start;"), 0o644))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Motor := Start;", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("3f1c9a2e-5b7d-4c1e-9f0a-1234567890ab"))
	assert.True(t, ValidSessionID("s_123"))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID("a/b"))
	assert.False(t, ValidSessionID("a.json"))
}
