package snapshot

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/l00pss/redkit/internal/store"
)

// fakeStore is a minimal in-memory Store so these tests exercise the
// manager's encode/decode and scheduling logic without a real
// *store.DatabaseSet behind it.
type fakeStore struct {
	mu         sync.Mutex
	dbs        [store.NumDatabases]map[string]store.KeyRecord
	resetCalls int
	sweptDBs   []int
}

func newFakeStore() *fakeStore {
	fs := &fakeStore{}
	for i := range fs.dbs {
		fs.dbs[i] = map[string]store.KeyRecord{}
	}
	return fs
}

func (fs *fakeStore) ExportDatabase(idx int) (map[string]store.KeyRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make(map[string]store.KeyRecord, len(fs.dbs[idx]))
	for k, v := range fs.dbs[idx] {
		out[k] = v
	}
	return out, nil
}

func (fs *fakeStore) ImportDatabase(idx int, records map[string]store.KeyRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dbs[idx] = records
	return nil
}

func (fs *fakeStore) ResetChangeCounters() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.resetCalls++
}

func (fs *fakeStore) ScheduleExpiration(idx int, _ time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sweptDBs = append(fs.sweptDBs, idx)
}

func (fs *fakeStore) snapshot(idx int) map[string]store.KeyRecord {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.dbs[idx]
}

func newTestManager(t *testing.T, fs *fakeStore) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.json")
	log := zaptest.NewLogger(t).Sugar()
	m := NewManager(path, fs, log)
	t.Cleanup(m.Close)
	return m, path
}

func TestSaveLoadRoundTrip(t *testing.T) {
	saver := newFakeStore()
	saver.dbs[0]["str"] = store.KeyRecord{Value: store.NewStringValue([]byte("hello"))}
	saver.dbs[0]["list"] = store.KeyRecord{Value: store.NewListValueFromSlice([][]byte{[]byte("a"), []byte("b")})}
	saver.dbs[0]["set"] = store.KeyRecord{Value: store.NewSetValueFromSlice([]string{"x", "y"})}
	saver.dbs[0]["hash"] = store.KeyRecord{Value: store.NewHashValueFromMap(map[string][]byte{"f": []byte("v")})}
	expireAt := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	saver.dbs[0]["expiring"] = store.KeyRecord{Value: store.NewStringValue([]byte("soon")), Expiration: &expireAt}

	saveMgr, path := newTestManager(t, saver)
	require.NoError(t, saveMgr.Save())
	assert.Equal(t, 1, saver.resetCalls)

	loader := newFakeStore()
	log := zaptest.NewLogger(t).Sugar()
	loadMgr := NewManager(path, loader, log)
	t.Cleanup(loadMgr.Close)
	require.NoError(t, loadMgr.Load())

	got := loader.snapshot(0)
	require.Contains(t, got, "str")
	assert.Equal(t, []byte("hello"), got["str"].Value.Str)

	require.Contains(t, got, "list")
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, got["list"].Value.List.Range(0, -1))

	require.Contains(t, got, "set")
	assert.ElementsMatch(t, []string{"x", "y"}, got["set"].Value.Set.ToSlice())

	require.Contains(t, got, "hash")
	assert.Equal(t, []byte("v"), got["hash"].Value.Hash["f"])

	require.Contains(t, got, "expiring")
	require.NotNil(t, got["expiring"].Expiration)
	assert.True(t, got["expiring"].Expiration.Equal(expireAt))

	assert.Contains(t, loader.sweptDBs, 0)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	fs := newFakeStore()
	m, _ := newTestManager(t, fs)
	require.NoError(t, m.Load())
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	fs := newFakeStore()
	m, path := newTestManager(t, fs)

	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))
	require.NoError(t, m.Load())
}

func TestLoadTinyFileIsTreatedAsMissing(t *testing.T) {
	fs := newFakeStore()
	m, path := newTestManager(t, fs)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, m.Load())
}

func TestScheduleSaveKeepsEarliestDeadline(t *testing.T) {
	fs := newFakeStore()
	m, _ := newTestManager(t, fs)

	m.ScheduleSave(50 * time.Millisecond)
	first := m.pending

	m.ScheduleSave(time.Hour)
	assert.Equal(t, first, m.pending, "a later deadline must not push out an earlier pending one")
}
