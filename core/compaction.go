package core

import (
	"fmt"
	"os"
)

// compact implements §4.4.4's algorithm: copy every live record into a
// fresh segment, swap in a fresh active segment, atomically replace the
// index and segment set, and delete the retired files. If the new segment
// can't be fully written, the partial file is abandoned and the live
// index/segment set are left untouched — a caller sees a CompactionError
// but the engine keeps serving requests against its prior state.
func (db *KvStore) compact() (err error) {
	db.log.Infow("compaction starting", "reclaimable", db.reclaimable, "keys", db.index.len())

	outputID := db.nextSegmentID()
	output, err := createSegment(db.dir, outputID)
	if err != nil {
		return fmt.Errorf("create compaction output segment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = output.file.Close()
			_ = os.Remove(output.path)
		}
	}()

	newIndex := newKeyIndex()
	for key, loc := range db.index.all() {
		rec, err2 := db.segments.read(loc)
		if err2 != nil {
			return fmt.Errorf("read live record %q at %+v: %w", key, loc, err2)
		}

		n, err2 := writeRecord(output.file, rec)
		if err2 != nil {
			return fmt.Errorf("write %q to compaction segment %d: %w", key, outputID, err2)
		}

		newIndex.insert(key, Location{SegmentID: outputID, Offset: output.size, Length: n})
		output.size += n
	}

	if err = output.file.Sync(); err != nil {
		return fmt.Errorf("sync compaction segment %d: %w", outputID, err)
	}

	newActiveID := db.nextSegmentID()
	newActive, err := createSegment(db.dir, newActiveID)
	if err != nil {
		return fmt.Errorf("create new active segment %d: %w", newActiveID, err)
	}

	// Everything that could fail has succeeded: the new files are durable.
	// Swap the live state and retire the old segments. A partial failure
	// retiring old files from here on is tolerated (§4.4.4 step 5) — the
	// in-memory state is already correct.
	retiring := db.segments.segments

	db.index = newIndex
	db.segments = &segmentSet{
		dir: db.dir,
		segments: map[int]*segment{
			outputID:    output,
			newActiveID: newActive,
		},
		activeID: newActiveID,
	}
	db.reclaimable = 0

	oldSet := &segmentSet{dir: db.dir, segments: retiring}
	oldIDs := make([]int, 0, len(retiring))
	for id := range retiring {
		oldIDs = append(oldIDs, id)
	}
	if retireErr := oldSet.retire(oldIDs); retireErr != nil {
		db.log.Warnw("failed to fully retire old segments after compaction", "error", retireErr)
	}

	db.log.Infow("compaction finished", "outputSegment", outputID, "newActiveSegment", newActiveID,
		"retiredSegments", len(oldIDs))

	return nil
}

// nextSegmentID hands out an id strictly greater than any segment id the
// engine currently knows about or has previously allocated, closing the
// overflow/collision hole the wrapping_add approach left open (spec §9).
func (db *KvStore) nextSegmentID() int {
	max := db.idCtr
	for id := range db.segments.segments {
		if id > max {
			max = id
		}
	}
	db.idCtr = max + 1
	return db.idCtr
}
