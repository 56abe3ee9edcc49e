// Package core implements the log-structured storage engine: the record
// codec, the segment set, the in-memory key index, and the engine core
// that ties them together with a compaction routine.
package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind distinguishes the two record shapes the codec understands.
type Kind int8

const (
	// KindSet records a key/value write.
	KindSet Kind = iota
	// KindRemove is a tombstone: it makes a key absent without erasing
	// the prior writes that precede it in the log.
	KindRemove
)

// Record is the tagged variant the codec serializes: either a Set carrying
// a key and value, or a Remove tombstone carrying only a key. Value is
// meaningless for a Remove record.
type Record struct {
	Kind  Kind
	Key   string
	Value string
}

// wireRecord is the on-disk JSON shape: {"Set":["key","value"]} or
// {"Rm":"key"}. No framing, checksum, or header surrounds it — records are
// concatenated JSON documents decoded by a streaming decoder.
type wireRecord struct {
	Set *[2]string `json:"Set,omitempty"`
	Rm  *string    `json:"Rm,omitempty"`
}

// MarshalJSON implements the wire shape for a Record.
func (r Record) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindSet:
		return json.Marshal(wireRecord{Set: &[2]string{r.Key, r.Value}})
	case KindRemove:
		key := r.Key
		return json.Marshal(wireRecord{Rm: &key})
	default:
		return nil, fmt.Errorf("kvs: invalid record kind %d", r.Kind)
	}
}

// UnmarshalJSON parses either wire shape back into a Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Set != nil:
		r.Kind = KindSet
		r.Key, r.Value = w.Set[0], w.Set[1]
	case w.Rm != nil:
		r.Kind = KindRemove
		r.Key = *w.Rm
		r.Value = ""
	default:
		return fmt.Errorf("%w: record has neither Set nor Rm", ErrSerde)
	}
	return nil
}

// writeRecord encodes rec and writes it to w, returning the number of bytes
// written. The encoding is deterministic, so the returned length is exactly
// what a later ReadAt of that many bytes at the pre-write offset will
// decode back into rec.
func writeRecord(w io.Writer, rec Record) (int64, error) {
	buf, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerde, err)
	}
	n, err := w.Write(buf)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// decodeRecord decodes exactly one record from buf. It is used for point
// reads where the caller already knows the exact byte length of the record
// (from its index entry) and has read precisely that many bytes.
func decodeRecord(buf []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(buf, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSerde, err)
	}
	return rec, nil
}

// recordDecoder streams records out of a byte source, reporting the exact
// number of bytes each one consumed so the caller can compute offsets.
// It wraps encoding/json's Decoder, which is already a self-delimiting
// streaming JSON reader: InputOffset before and after a Decode call brackets
// exactly one record's bytes because segments hold concatenated JSON values
// with no separator.
type recordDecoder struct {
	dec *json.Decoder
}

func newRecordDecoder(r io.Reader) *recordDecoder {
	return &recordDecoder{dec: json.NewDecoder(r)}
}

// next decodes the next record. It returns io.EOF when the source is
// exhausted cleanly at a record boundary. Any other error — including a
// partial trailing record — is reported as-is; callers that must treat
// trailing corruption as fatal (see §4.1's bootstrap policy) can rely on
// errors.Is(err, io.EOF) to distinguish the two cases.
func (d *recordDecoder) next() (rec Record, consumed int64, err error) {
	before := d.dec.InputOffset()
	if err := d.dec.Decode(&rec); err != nil {
		return Record{}, 0, err
	}
	after := d.dec.InputOffset()
	return rec, after - before, nil
}
