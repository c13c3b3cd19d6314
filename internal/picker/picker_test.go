package picker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestStaticPicker_Pick(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.txt", "hello")
	second := writeFile(t, dir, "second.txt", "hi")

	p := &StaticPicker{Paths: []string{first, second}}

	result, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Cancelled)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "first.txt", result.Items[0].Name)
	assert.Equal(t, int64(5), result.Items[0].Size)
	assert.Equal(t, first, result.Items[0].Handle)
	assert.Equal(t, "second.txt", result.Items[1].Name)
}

func TestStaticPicker_EmptyBehavesLikeCancelled(t *testing.T) {
	p := &StaticPicker{}

	result, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Empty(t, result.Items)
}

func TestStaticPicker_MissingPathFailsWholePick(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "ok")

	p := &StaticPicker{Paths: []string{good, filepath.Join(dir, "missing.txt")}}

	result, err := p.Pick(context.Background())
	require.Error(t, err)
	assert.Nil(t, result, "a bad path must not commit a partial selection")
}

func TestStaticPicker_RejectsDirectories(t *testing.T) {
	dir := t.TempDir()

	p := &StaticPicker{Paths: []string{dir}}

	_, err := p.Pick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestDirPicker_SkipsDotfilesAndSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.txt", "x")
	writeFile(t, dir, ".hidden", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	p := NewDirPicker(dir)

	result, err := p.Pick(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "visible.txt", result.Items[0].Name)
}

func TestDirPicker_OffersEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")

	p := NewDirPicker(dir)

	result, err := p.Pick(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	// A second pick of an unchanged directory offers nothing.
	result, err = p.Pick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	// A new file shows up on the next pick.
	writeFile(t, dir, "b.txt", "b")

	result, err = p.Pick(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "b.txt", result.Items[0].Name)
}

func TestDirPicker_MissingDirectory(t *testing.T) {
	p := NewDirPicker(filepath.Join(t.TempDir(), "nope"))

	_, err := p.Pick(context.Background())
	require.Error(t, err)
}
