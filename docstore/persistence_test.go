package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceAppendAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	p, err := NewPersistence(PersistenceOptions{Filename: path})
	require.NoError(t, err)

	require.NoError(t, p.Append(doc("_id", "1", "name", "alice")))
	require.NoError(t, p.Append(doc("_id", "2", "name", "bob")))
	require.NoError(t, p.AppendTombstone("1"))

	docs, order, _, err := p.Load()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, []string{"2"}, order)
}

func TestPersistenceIndexEnvelopesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	p, err := NewPersistence(PersistenceOptions{Filename: path})
	require.NoError(t, err)

	spec := indexSpec{FieldName: "email", Unique: true}
	require.NoError(t, p.AppendIndexCreated(spec))

	_, _, specs, err := p.Load()
	require.NoError(t, err)
	require.Contains(t, specs, "email")
	assert.True(t, specs["email"].Unique)

	require.NoError(t, p.AppendIndexRemoved("email"))
	_, _, specs, err = p.Load()
	require.NoError(t, err)
	assert.NotContains(t, specs, "email")
}

func TestPersistenceCompactWritesMinimalSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	p, err := NewPersistence(PersistenceOptions{Filename: path})
	require.NoError(t, err)

	require.NoError(t, p.Append(doc("_id", "1")))
	require.NoError(t, p.Append(doc("_id", "1", "name", "updated")))
	require.NoError(t, p.Append(doc("_id", "2")))
	require.NoError(t, p.AppendTombstone("2"))

	var stats CompactionStats
	p.OnCompaction(func(s CompactionStats) { stats = s })

	live := []*Doc{doc("_id", "1", "name", "updated")}
	require.NoError(t, p.Compact(live, nil))
	assert.Equal(t, 1, stats.LiveDocuments)

	docs, order, _, err := p.Load()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, []string{"1"}, order)
}

func TestPersistenceCorruptionThresholdAbortsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	// 3 garbage lines, 1 good line: 75% malformed, above the default 10%.
	contents := "not json\nalso not json\nstill not json\n{\"_id\":\"1\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	p, err := NewPersistence(PersistenceOptions{Filename: path})
	require.NoError(t, err)
	_, _, _, err = p.Load()
	require.Error(t, err)
	assert.True(t, Is(err, ErrCorruption))
}

func TestPersistenceSideFileReconciliationOnLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")
	side := path + "~"

	// Simulate a crash mid-compaction: only the side file survived.
	require.NoError(t, os.WriteFile(side, []byte(`{"_id":"1"}`+"\n"), 0o644))

	p, err := NewPersistence(PersistenceOptions{Filename: path})
	require.NoError(t, err)
	docs, _, _, err := p.Load()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.NoFileExists(t, side)
	assert.FileExists(t, path)
}

func TestPersistenceHookPairMustBeDeclaredTogether(t *testing.T) {
	_, err := NewPersistence(PersistenceOptions{
		Filename:           filepath.Join(t.TempDir(), "data.db"),
		AfterSerialization: func(s string) string { return s },
	})
	require.Error(t, err)
	assert.True(t, Is(err, ErrHookMismatch))
}

func TestPersistenceHookCanaryRejectsMismatchedHooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	p, err := NewPersistence(PersistenceOptions{
		Filename:              path,
		AfterSerialization:    func(s string) string { return "AAA" + s },
		BeforeDeserialization: func(s string) string { return s[3:] },
	})
	require.NoError(t, err)
	require.NoError(t, p.Append(doc("_id", "1")))

	_, err = NewPersistence(PersistenceOptions{
		Filename:              path,
		AfterSerialization:    func(s string) string { return "B" + s },
		BeforeDeserialization: func(s string) string { return s[1:] },
	})
	require.Error(t, err)
	assert.True(t, Is(err, ErrHookMismatch))
}

func TestPersistenceInMemoryOnlyNeverTouchesDisk(t *testing.T) {
	p, err := NewPersistence(PersistenceOptions{InMemoryOnly: true})
	require.NoError(t, err)
	require.NoError(t, p.Append(doc("_id", "1")))
	docs, order, _, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, order)
}
