package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/nafstore/pkg/codec"
	"github.com/OFFIS-RIT/nafstore/pkg/naf/naftest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return filepath.Join(t.TempDir(), "naf.db")
}

func writeSample(t *testing.T, name string) string {
	t.Helper()
	rec, err := codec.FlattenDocument(naftest.Sample())
	require.NoError(t, err)
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, data, 0o600))
	return file
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "nafctl dev\n", out)
}

func TestConfigShowAppliesFlags(t *testing.T) {
	isolate(t)
	t.Setenv("NAFSTORE_NAF_LANG", "nl")
	out, err := run(t, "config", "show", "--backend", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: memory")
	assert.Contains(t, out, "lang: nl")
	assert.NotContains(t, out, "password")
}

func TestStoreLoadRemove(t *testing.T) {
	db := isolate(t)
	file := writeSample(t, "story.json")

	out, err := run(t, "store", "--bolt-path", db, "--session", "5", "--by-sentence", file)
	require.NoError(t, err)
	assert.Equal(t, "Stored 1 of 1 documents\n", out)

	out, err = run(t, "load", "--bolt-path", db, "--session", "5", "--doc", "story", "--layers", "entities,deps")
	require.NoError(t, err)
	rec := new(codec.DocumentRecord)
	require.NoError(t, json.Unmarshal([]byte(out), rec))
	assert.Contains(t, rec.Layers, "entities")
	assert.Contains(t, rec.Layers, "deps")
	assert.NotContains(t, rec.Layers, "srl")

	out, err = run(t, "remove", "--bolt-path", db, "--session", "5", "--doc", "story")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Removed"))

	out, err = run(t, "load", "--bolt-path", db, "--session", "5", "--doc", "story")
	require.NoError(t, err)
	rec = new(codec.DocumentRecord)
	require.NoError(t, json.Unmarshal([]byte(out), rec))
	assert.Empty(t, rec.Layers)
}

func TestStoreArgumentErrors(t *testing.T) {
	db := isolate(t)
	a, b := writeSample(t, "a.json"), writeSample(t, "b.json")

	_, err := run(t, "store", "--bolt-path", db, "--doc", "x", a, b)
	assert.Error(t, err)
	_, err = run(t, "store", "--bolt-path", db, "--sentence", "1", a)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	out, err := run(t, "store", "--bolt-path", db, "--parallel", "1", a, bad)
	assert.Error(t, err)
	assert.Equal(t, "Stored 1 of 2 documents\n", out)
}

func TestAppendOnlyFlag(t *testing.T) {
	db := isolate(t)
	file := writeSample(t, "d.json")

	_, err := run(t, "store", "--bolt-path", db, "--append-only", file)
	require.NoError(t, err)
	_, err = run(t, "store", "--bolt-path", db, "--append-only", file)
	assert.Error(t, err)
	_, err = run(t, "store", "--bolt-path", db, file)
	assert.NoError(t, err)
}

func TestDropNeedsConfirmation(t *testing.T) {
	db := isolate(t)
	_, err := run(t, "drop", "--bolt-path", db)
	assert.Error(t, err)
	out, err := run(t, "drop", "--bolt-path", db, "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Store dropped\n", out)
}
