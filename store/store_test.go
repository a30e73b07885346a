package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/userdb/store"
)

// runStoreTests runs a common test suite against any Store implementation.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("Read missing", func(t *testing.T) {
		docs, err := s.Read("test")
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
	})

	t.Run("Write and Read", func(t *testing.T) {
		docs := []map[string]any{
			{"_id": float64(1), "title": "hello", "count": float64(42)},
			{"_id": float64(2), "title": "world", "done": true},
		}
		require.NoError(t, s.Write("col1", docs))

		got, err := s.Read("col1")
		require.NoError(t, err)
		assert.Equal(t, docs, got)
	})

	t.Run("Write replaces", func(t *testing.T) {
		require.NoError(t, s.Write("col1", []map[string]any{{"title": "only"}}))

		got, err := s.Read("col1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "only", got[0]["title"])
	})

	t.Run("Write empty", func(t *testing.T) {
		require.NoError(t, s.Write("col2", nil))

		got, err := s.Read("col2")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Read returns copies", func(t *testing.T) {
		got, err := s.Read("col1")
		require.NoError(t, err)
		got[0]["title"] = "mutated"

		again, err := s.Read("col1")
		require.NoError(t, err)
		assert.Equal(t, "only", again[0]["title"])
	})

	t.Run("Sequences collection is unlisted", func(t *testing.T) {
		seq := []map[string]any{{"collection": "col1", "seq": float64(9)}}
		require.NoError(t, s.Write(store.SequencesCollection, seq))
		got, err := s.Read(store.SequencesCollection)
		require.NoError(t, err)
		assert.Equal(t, seq, got)
		assert.ErrorIs(t, store.CheckName(store.SequencesCollection), store.ErrInvalidName)
	})

	t.Run("ListCollections", func(t *testing.T) {
		names, err := s.ListCollections()
		require.NoError(t, err)
		assert.Equal(t, []string{"col1", "col2"}, names)
	})

	t.Run("Invalid name", func(t *testing.T) {
		for _, name := range []string{"", "../etc", "_hidden", ".dot", "a/b"} {
			_, err := s.Read(name)
			assert.ErrorIs(t, err, store.ErrInvalidName, name)
			assert.ErrorIs(t, s.Write(name, nil), store.ErrInvalidName, name)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	runStoreTests(t, s)
}

func TestJsonFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)
	runStoreTests(t, s)
}

func TestSqliteStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := store.NewSqliteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()
	runStoreTests(t, s)
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	for _, backend := range []string{"json", "sqlite", "memory", ""} {
		t.Run(backend, func(t *testing.T) {
			s, err := store.New(backend, filepath.Join(dir, backend))
			require.NoError(t, err)
			if c, ok := s.(interface{ Close() error }); ok {
				defer c.Close()
			}
			docs, err := s.Read("users")
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := store.New("redis", dir)
		assert.Error(t, err)
	})
}

func TestJsonFileStoreFileFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Write("users", []map[string]any{{"_id": 7, "name": "ann"}}))

	b, err := os.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"_id\": 7,\n    \"name\": \"ann\"\n  }\n]", string(b))

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJsonFileStoreEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), nil, 0o644))
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)

	docs, err := s.Read("users")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestJsonFileStoreMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":      "{oops",
		"object":        `{"_id": 1}`,
		"scalar member": `[{"_id": 1}, 3]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(content), 0o644))
			s, err := store.NewJsonFileStore(dir)
			require.NoError(t, err)

			_, err = s.Read("users")
			require.ErrorIs(t, err, store.ErrMalformed)
			var serr *store.Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "users", serr.Collection)
		})
	}
}

func TestJsonFileStoreIsolation(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Write("a", []map[string]any{{"x": float64(1)}}))
	require.NoError(t, s.Write("b", []map[string]any{{"x": float64(2)}}))

	aDocs, err := s.Read("a")
	require.NoError(t, err)
	bDocs, err := s.Read("b")
	require.NoError(t, err)
	assert.Equal(t, float64(1), aDocs[0]["x"])
	assert.Equal(t, float64(2), bDocs[0]["x"])

	assert.FileExists(t, filepath.Join(dir, "a.json"))
	assert.FileExists(t, filepath.Join(dir, "b.json"))
}
