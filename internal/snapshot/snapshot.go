// Package snapshot implements the JSON dump-file persistence layer:
// atomic-replace saves, save-point scheduling, and load-time expiration
// sweeps, serialized through a single work stream so overlapping saves
// never race on the same temp file.
package snapshot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/l00pss/redkit/internal/store"
)

// Store is the subset of *store.DatabaseSet the snapshot manager needs,
// named narrowly so tests can fake it without standing up a real store.
type Store interface {
	ExportDatabase(idx int) (map[string]store.KeyRecord, error)
	ImportDatabase(idx int, records map[string]store.KeyRecord) error
	ResetChangeCounters()
	ScheduleExpiration(idx int, now time.Time)
}

// fileRecord is one key's on-disk representation; Value and Expiration
// are base64'd/epoch-millis so the dump stays binary-safe and diffable.
type fileRecord struct {
	Kind       string  `json:"kind"`
	Str        string  `json:"str,omitempty"`
	List       []string `json:"list,omitempty"`
	Set        []string `json:"set,omitempty"`
	Hash       map[string]string `json:"hash,omitempty"`
	ExpireAtMs *int64  `json:"expire_at_ms,omitempty"`
}

type fileDump struct {
	Version   int                       `json:"version"`
	Databases [store.NumDatabases]map[string]fileRecord `json:"databases"`
}

const dumpVersion = 1

// Manager owns the path to the dump file and coordinates save/load
// against a Store, per spec.md §4.6: single-threaded work stream,
// collapsed concurrent saves, atomic temp-file-then-rename replace.
type Manager struct {
	path  string
	store Store
	log   *zap.SugaredLogger
	now   func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	pending time.Time

	group     singleflight.Group
	workQueue chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// NewManager starts the manager's single-threaded work stream. Save and
// Load calls are submitted onto workQueue so at most one dump I/O
// operation runs at a time, however many goroutines call in.
func NewManager(path string, st Store, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Manager{
		path:      path,
		store:     st,
		log:       log,
		now:       time.Now,
		workQueue: make(chan func(), 16),
		done:      make(chan struct{}),
	}
	m.wg.Add(1)
	go m.runWorkStream()
	return m
}

func (m *Manager) runWorkStream() {
	defer m.wg.Done()
	for {
		select {
		case fn := <-m.workQueue:
			fn()
		case <-m.done:
			// Drain anything already queued before exiting.
			for {
				select {
				case fn := <-m.workQueue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Close stops the scheduler and drains the work stream.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		m.mu.Unlock()
		close(m.done)
		m.wg.Wait()
	})
}

// submit runs fn on the single-threaded work stream and blocks until it
// completes, returning its error.
func (m *Manager) submit(fn func() error) error {
	errCh := make(chan error, 1)
	m.workQueue <- func() { errCh <- fn() }
	return <-errCh
}

// Save writes every database to the dump file via an atomic
// write-temp-then-rename replace. Concurrent callers collapse onto one
// actual write through singleflight, per spec.md §4.6.
func (m *Manager) Save() error {
	v, err, _ := m.group.Do("save", func() (interface{}, error) {
		return nil, m.submit(m.saveOnce)
	})
	_ = v
	return err
}

func (m *Manager) saveOnce() error {
	var dump fileDump
	dump.Version = dumpVersion
	for i := 0; i < store.NumDatabases; i++ {
		records, err := m.store.ExportDatabase(i)
		if err != nil {
			return err
		}
		out := make(map[string]fileRecord, len(records))
		for key, rec := range records {
			fr := fileRecord{Kind: rec.Value.Kind.String()}
			switch rec.Value.Kind {
			case store.KindString:
				fr.Str = base64.StdEncoding.EncodeToString(rec.Value.Str)
			case store.KindList:
				items := rec.Value.List.Range(0, -1)
				fr.List = make([]string, len(items))
				for j, it := range items {
					fr.List[j] = base64.StdEncoding.EncodeToString(it)
				}
			case store.KindSet:
				members := rec.Value.Set.ToSlice()
				fr.Set = make([]string, len(members))
				for j, mem := range members {
					fr.Set[j] = base64.StdEncoding.EncodeToString([]byte(mem))
				}
			case store.KindHash:
				fr.Hash = make(map[string]string, len(rec.Value.Hash))
				for field, val := range rec.Value.Hash {
					fr.Hash[base64.StdEncoding.EncodeToString([]byte(field))] = base64.StdEncoding.EncodeToString(val)
				}
			}
			if rec.Expiration != nil {
				ms := rec.Expiration.UnixMilli()
				fr.ExpireAtMs = &ms
			}
			out[base64.StdEncoding.EncodeToString([]byte(key))] = fr
		}
		dump.Databases[i] = out
	}

	// Counters reset before serialization: any write that lands after this
	// point starts counting toward the next save, even though this save
	// hasn't hit disk yet, per spec.md §4.6.
	m.store.ResetChangeCounters()

	data, err := json.Marshal(&dump)
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.path)
	tmp := filepath.Join(dir, "."+filepath.Base(m.path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return err
	}
	m.log.Infow("snapshot saved", "path", m.path, "bytes", len(data))
	return nil
}

// Load reads the dump file and replaces every database's contents. A
// missing or empty file is not an error: the store keeps whatever
// empty databases it started with, matching a fresh-install boot.
func (m *Manager) Load() error {
	return m.submit(m.loadOnce)
}

func (m *Manager) loadOnce() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Infow("no snapshot found, starting empty", "path", m.path)
			return nil
		}
		return err
	}
	if len(data) < 2 {
		return nil
	}

	var dump fileDump
	if err := json.Unmarshal(data, &dump); err != nil {
		m.log.Errorw("corrupt snapshot, starting empty", "path", m.path, "err", err)
		return nil
	}

	now := m.now()
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < store.NumDatabases; i++ {
		i := i
		records := dump.Databases[i]
		g.Go(func() error {
			out := make(map[string]store.KeyRecord, len(records))
			for encKey, fr := range records {
				key, err := decodeKey(encKey)
				if err != nil {
					continue
				}
				val, err := fr.toValue()
				if err != nil {
					return err
				}
				rec := store.KeyRecord{Value: val}
				if fr.ExpireAtMs != nil {
					t := time.UnixMilli(*fr.ExpireAtMs)
					rec.Expiration = &t
				}
				out[key] = rec
			}
			if err := m.store.ImportDatabase(i, out); err != nil {
				return err
			}
			m.store.ScheduleExpiration(i, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.log.Infow("snapshot loaded", "path", m.path)
	return nil
}

func decodeKey(enc string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (fr fileRecord) toValue() (store.Value, error) {
	switch fr.Kind {
	case "string":
		b, err := base64.StdEncoding.DecodeString(fr.Str)
		if err != nil {
			return store.Value{}, err
		}
		return store.NewStringValue(b), nil
	case "list":
		items := make([][]byte, len(fr.List))
		for i, enc := range fr.List {
			b, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return store.Value{}, err
			}
			items[i] = b
		}
		return store.NewListValueFromSlice(items), nil
	case "set":
		members := make([]string, len(fr.Set))
		for i, enc := range fr.Set {
			b, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return store.Value{}, err
			}
			members[i] = string(b)
		}
		return store.NewSetValueFromSlice(members), nil
	case "hash":
		h := make(map[string][]byte, len(fr.Hash))
		for encField, encVal := range fr.Hash {
			field, err := base64.StdEncoding.DecodeString(encField)
			if err != nil {
				return store.Value{}, err
			}
			val, err := base64.StdEncoding.DecodeString(encVal)
			if err != nil {
				return store.Value{}, err
			}
			h[string(field)] = val
		}
		return store.NewHashValueFromMap(h), nil
	default:
		return store.Value{}, nil
	}
}

// ScheduleSave arranges a future Save call delay from now, rescheduling
// to an earlier deadline if one is already pending but this request asks
// for sooner (spec.md §4.6: "the earliest requested deadline wins").
func (m *Manager) ScheduleSave(delay time.Duration) {
	deadline := m.now().Add(delay)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pending.IsZero() && !deadline.Before(m.pending) {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.pending = deadline
	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.pending = time.Time{}
		m.mu.Unlock()
		if err := m.Save(); err != nil {
			m.log.Errorw("scheduled snapshot save failed", "error", err)
		}
	})
}
