package core

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CompactionThreshold is the reclaimable-byte watermark that triggers a
// compaction pass after any Set or Remove.
const CompactionThreshold = 4 * 1024 * 1024 // 4 MiB

// KvStore is the Bitcask-style log-structured engine: a set of append-only
// segments, an in-memory key index, and a compaction routine that reclaims
// space from overwritten and deleted records. All exported methods take
// exclusive access internally, so a single KvStore value is safe to share
// across callers even though nothing inside it ever runs concurrently with
// itself.
type KvStore struct {
	mu sync.Mutex

	dir      string
	segments *segmentSet
	index    *keyIndex

	reclaimable int64
	idCtr       int

	fsync               bool
	compactionThreshold int64
	log                 *zap.SugaredLogger
}

// Option configures a KvStore at Open time.
type Option func(*KvStore)

// WithFsync controls whether every append is followed by an fsync before
// the call returns. Off by default: the write itself always completes
// before the index is updated (so the index never points past the durable
// tail), fsync only adds the stronger guarantee that the tail survives a
// power loss.
func WithFsync(b bool) Option {
	return func(k *KvStore) { k.fsync = b }
}

// WithCompactionThreshold overrides CompactionThreshold, mainly for tests
// that want to exercise compaction without writing megabytes of data.
func WithCompactionThreshold(n int64) Option {
	return func(k *KvStore) { k.compactionThreshold = n }
}

// WithLogger attaches a logger; a no-op logger is used if this is omitted.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(k *KvStore) { k.log = l }
}

// Open bootstraps a KvStore from dir: it creates the directory if missing,
// replays every existing segment in ascending id order to rebuild the
// index and reclaimable-byte count, and opens a fresh active segment whose
// id is strictly greater than any segment already on disk.
func Open(dir string, opts ...Option) (db *KvStore, err error) {
	db = &KvStore{
		dir:                 dir,
		index:               newKeyIndex(),
		compactionThreshold: CompactionThreshold,
		log:                 zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(db)
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}

	ids, err := discoverSegmentIDs(dir)
	if err != nil {
		return nil, fmt.Errorf("discover segments: %w", err)
	}

	db.segments = newSegmentSet(dir)

	// On any error past this point, close whatever segment handles we've
	// already opened so we don't leak file descriptors on a failed open.
	defer func() {
		if err != nil {
			for _, seg := range db.segments.segments {
				_ = seg.file.Close()
			}
		}
	}()

	for _, id := range ids {
		seg, err2 := openSegment(dir, id)
		if err2 != nil {
			return nil, fmt.Errorf("open segment %d: %w", id, err2)
		}
		db.segments.segments[id] = seg

		if err2 := db.replay(seg); err2 != nil {
			return nil, fmt.Errorf("replay segment %d: %w", id, err2)
		}
	}

	maxID := 0
	if len(ids) > 0 {
		maxID = slices.Max(ids)
	}
	db.idCtr = maxID + 1

	active, err := createSegment(dir, db.idCtr)
	if err != nil {
		return nil, fmt.Errorf("create active segment: %w", err)
	}
	db.segments.segments[db.idCtr] = active
	db.segments.activeID = db.idCtr

	if orphans, err2 := db.segments.orphans(); err2 != nil {
		db.log.Warnw("failed to scan for orphaned segments", "error", err2)
	} else if orphans.Cardinality() != 0 {
		db.log.Warnw("orphaned segment files present, possibly from an interrupted compaction",
			"files", orphans.ToSlice())
	}

	return db, nil
}

// replay streams every record out of seg in order, updating the index and
// reclaimable-byte count exactly as a live Set/Remove would (§4.1 step 3).
// A decode failure on a partial trailing record is fatal: the engine does
// not silently truncate a segment it didn't write itself this session.
func (db *KvStore) replay(seg *segment) error {
	const maxInt64 = 1<<63 - 1
	dec := newRecordDecoder(io.NewSectionReader(seg.file, 0, maxInt64))

	var offset int64
	for {
		rec, n, err := dec.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("%w: %v", ErrSerde, err)
		}

		loc := Location{SegmentID: seg.id, Offset: offset, Length: n}
		switch rec.Kind {
		case KindSet:
			prev := db.index.insert(rec.Key, loc)
			db.reclaimable += prev
		case KindRemove:
			prev := db.index.remove(rec.Key)
			db.reclaimable += prev + n
		}

		offset += n
		seg.size = offset
	}

	return nil
}

// Get looks up key and returns its value. A miss is reported as
// (_, false, nil) — it is not an error.
func (db *KvStore) Get(key string) (string, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	loc, ok := db.index.get(key)
	if !ok {
		return "", false, nil
	}

	rec, err := db.segments.read(loc)
	if err != nil {
		return "", false, fmt.Errorf("read record for key %q at %+v: %w", key, loc, err)
	}
	if rec.Kind != KindSet || rec.Key != key {
		return "", false, fmt.Errorf("%w: key %q at %+v", ErrCorruptIndex, key, loc)
	}

	return rec.Value, true, nil
}

// Set durably appends a Set record for key/value to the active segment,
// updates the index, and runs the compaction trigger.
func (db *KvStore) Set(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	off, n, err := db.segments.append(Record{Kind: KindSet, Key: key, Value: value}, db.fsync)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	prev := db.index.insert(key, Location{SegmentID: db.segments.activeID, Offset: off, Length: n})
	db.reclaimable += prev

	return db.maybeCompact()
}

// Remove appends a tombstone for key and removes it from the index. It
// fails with a *KeyNotFoundError if key is absent.
func (db *KvStore) Remove(key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.index.contains(key) {
		return &KeyNotFoundError{Key: key}
	}

	_, n, err := db.segments.append(Record{Kind: KindRemove, Key: key}, db.fsync)
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}

	prev := db.index.remove(key)
	db.reclaimable += prev + n

	return db.maybeCompact()
}

func (db *KvStore) maybeCompact() error {
	if db.reclaimable < db.compactionThreshold {
		return nil
	}
	if err := db.compact(); err != nil {
		return &CompactionError{Detail: err}
	}
	return nil
}

// ReclaimableBytes reports the current upper-bound estimate of disk bytes
// that would be freed by compaction (spec invariant I5).
func (db *KvStore) ReclaimableBytes() int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reclaimable
}

// DiskSize sums the on-disk size of every open segment file.
func (db *KvStore) DiskSize() (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.segments.diskSize()
}

// Close runs a best-effort final compaction (§4.4.5 — errors are logged,
// not returned) and then flushes and closes every segment handle.
func (db *KvStore) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.reclaimable > 0 {
		if err := db.compact(); err != nil {
			db.log.Warnw("final compaction on close failed", "error", err)
		}
	}

	var errs error
	for _, seg := range db.segments.segments {
		if err := seg.file.Sync(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sync segment %d: %w", seg.id, err))
		}
		if err := seg.file.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close segment %d: %w", seg.id, err))
		}
	}
	return errs
}
