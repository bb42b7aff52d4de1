package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/lang/source"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "circuit.zn")
	writeFile(t, path, "fn main() {}")

	tree, err := source.ResolvePath(path)
	require.NoError(t, err)
	require.Equal(t, "circuit", tree.Root.Name)
}

func TestResolveApplicationRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.zn"), "fn main() {}")
	writeFile(t, filepath.Join(dir, "helpers.zn"), "fn helper() {}")

	tree, err := source.ResolvePath(dir)
	require.NoError(t, err)
	require.Equal(t, source.EntryMain, tree.Root.Entry)
	require.Contains(t, tree.Root.Children, "helpers")
}

func TestResolveMissingApplicationEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "helpers.zn"), "fn helper() {}")

	_, err := source.ResolvePath(dir)
	require.Error(t, err)
	var serr *source.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, source.ApplicationEntryNotFound, serr.Kind)
}

func TestResolveModuleEntryInRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.zn"), "fn main() {}")
	writeFile(t, filepath.Join(dir, "mod.zn"), "fn x() {}")

	_, err := source.ResolvePath(dir)
	require.Error(t, err)
	var serr *source.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, source.ModuleEntryInRoot, serr.Kind)
}

func TestResolveSubdirectoryNeedsModEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.zn"), "fn main() {}")
	writeFile(t, filepath.Join(dir, "sub", "other.zn"), "fn x() {}")

	_, err := source.ResolvePath(dir)
	require.Error(t, err)
	var serr *source.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, source.ModuleEntryNotFound, serr.Kind)
}

func TestResolveSubdirectoryWithModEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.zn"), "fn main() {}")
	writeFile(t, filepath.Join(dir, "sub", "mod.zn"), "fn x() {}")

	tree, err := source.ResolvePath(dir)
	require.NoError(t, err)
	require.Contains(t, tree.Root.Children, "sub")
	require.Equal(t, source.EntryMod, tree.Root.Children["sub"].Entry)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zinc.yaml"), "project:\n  name: demo\n  version: 0.1.0\n  type: circuit\n")

	m, err := source.LoadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Project.Name)
	require.Equal(t, "circuit", m.Project.Kind)
}

func TestLoadManifestMissing(t *testing.T) {
	dir := t.TempDir()
	m, err := source.LoadManifest(dir)
	require.NoError(t, err)
	require.Nil(t, m)
}
