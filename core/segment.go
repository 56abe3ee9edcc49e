package core

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"
)

// Location is the byte range of a record's latest Set, as recorded by the
// key index: which segment, what offset, how many bytes.
type Location struct {
	SegmentID int
	Offset    int64
	Length    int64
}

// segment is one append-only <id>.kvs file. size tracks the append cursor;
// it is authoritative only for the active segment, but kept up to date for
// every segment. DiskSize does not use it; it stats each file instead.
type segment struct {
	id   int
	path string
	file *os.File
	size int64
}

func segmentPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.kvs", id))
}

// createSegment makes a brand new segment file with create-new semantics:
// it fails if the file already exists, which would indicate directory
// corruption (a reused id).
func createSegment(dir string, id int) (*segment, error) {
	path := segmentPath(dir, id)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create segment %d: %w", id, err)
	}
	return &segment{id: id, path: path, file: f}, nil
}

// openSegment opens an existing segment file for replay and later reads.
func openSegment(dir string, id int) (*segment, error) {
	path := segmentPath(dir, id)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open segment %d: %w", id, err)
	}
	return &segment{id: id, path: path, file: f}, nil
}

// discoverSegmentIDs enumerates <integer>.kvs files in dir, ignoring any
// name whose stem fails to parse as a non-negative integer, and returns the
// ids sorted ascending.
func discoverSegmentIDs(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stem, ok := strings.CutSuffix(name, ".kvs")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(stem)
		if err != nil || id < 0 {
			continue
		}
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids, nil
}

// segmentSet owns every open segment handle for an engine instance: all
// readers, plus the one writer bound to the active segment. Segments other
// than the active one are immutable — they're only ever read or retired.
type segmentSet struct {
	dir      string
	segments map[int]*segment
	activeID int
}

func newSegmentSet(dir string) *segmentSet {
	return &segmentSet{dir: dir, segments: make(map[int]*segment)}
}

func (ss *segmentSet) active() *segment { return ss.segments[ss.activeID] }

// append writes rec to the active segment at EOF and, unless fsync is
// false, syncs it to stable storage before returning. Either way the write
// has completed — and is visible to ReadAt in this process — before the
// caller updates the index, so a crash can only ever replay a record the
// index already expected or lose one the index never learned about.
func (ss *segmentSet) append(rec Record, fsync bool) (offset, length int64, err error) {
	seg := ss.active()
	offset = seg.size

	n, err := writeRecord(seg.file, rec)
	if err != nil {
		return 0, 0, fmt.Errorf("append to segment %d: %w", seg.id, err)
	}
	seg.size += n

	if fsync {
		if err := seg.file.Sync(); err != nil {
			return 0, 0, fmt.Errorf("sync segment %d: %w", seg.id, err)
		}
	}

	return offset, n, nil
}

// read decodes the record at loc. It fails if the segment id is unknown or
// the read/decode fails.
func (ss *segmentSet) read(loc Location) (Record, error) {
	seg, ok := ss.segments[loc.SegmentID]
	if !ok {
		return Record{}, fmt.Errorf("kvs: unknown segment %d", loc.SegmentID)
	}

	buf := make([]byte, loc.Length)
	if _, err := seg.file.ReadAt(buf, loc.Offset); err != nil {
		return Record{}, fmt.Errorf("read segment %d at %d: %w", loc.SegmentID, loc.Offset, err)
	}

	return decodeRecord(buf)
}

// retire closes and deletes the given segment files. Errors are
// accumulated, not short-circuited: a failure to remove one file should
// not leave the others' handles dangling open.
func (ss *segmentSet) retire(ids []int) error {
	var errs error
	for _, id := range ids {
		seg, ok := ss.segments[id]
		if !ok {
			continue
		}
		if err := seg.file.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close segment %d: %w", id, err))
		}
		if err := os.Remove(seg.path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove segment %d: %w", id, err))
		}
		delete(ss.segments, id)
	}
	return errs
}

// diskSize sums every open segment's current file size.
func (ss *segmentSet) diskSize() (int64, error) {
	var total int64
	for _, seg := range ss.segments {
		info, err := seg.file.Stat()
		if err != nil {
			return 0, fmt.Errorf("stat segment %d: %w", seg.id, err)
		}
		total += info.Size()
	}
	return total, nil
}

// orphans returns the names of files under dir that look like segment
// files but aren't tracked in ss — left behind by a crash mid-compaction
// (see §4.4.4's note on partially-failed retirement). It never fails the
// caller; orphans are logged and tolerated, not cleaned up automatically.
func (ss *segmentSet) orphans() (mapset.Set[string], error) {
	entries, err := os.ReadDir(ss.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", ss.dir, err)
	}

	tracked := mapset.NewSet[string]()
	for id := range ss.segments {
		tracked.Add(fmt.Sprintf("%d.kvs", id))
	}

	onDisk := mapset.NewSet[string]()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".kvs") {
			continue
		}
		onDisk.Add(name)
	}

	return onDisk.Difference(tracked), nil
}
