// Package proto defines the line-oriented JSON request/response envelopes
// exchanged between kvs-client and kvs-server.
package proto

import "encoding/json"

// KeyNotFoundMessage is the exact Err payload the server sends for a
// Remove against an absent key, so a client can recognize that specific
// failure instead of pattern-matching an arbitrary error string.
const KeyNotFoundMessage = "key not found"

// Request is the externally-tagged union of the three client-initiated
// operations. Exactly one field is non-nil on any given value.
type Request struct {
	Set    *SetArgs    `json:"Set,omitempty"`
	Get    *GetArgs    `json:"Get,omitempty"`
	Remove *RemoveArgs `json:"Remove,omitempty"`
}

type SetArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type GetArgs struct {
	Key string `json:"key"`
}

type RemoveArgs struct {
	Key string `json:"key"`
}

func SetRequest(key, value string) Request { return Request{Set: &SetArgs{Key: key, Value: value}} }
func GetRequest(key string) Request         { return Request{Get: &GetArgs{Key: key}} }
func RemoveRequest(key string) Request      { return Request{Remove: &RemoveArgs{Key: key}} }

// Response mirrors Request: exactly one field is set, and its payload is a
// Rust-style Result encoded as {"Ok":...} or {"Err":"message"}.
type Response struct {
	Set    *UnitResult   `json:"Set,omitempty"`
	Get    *StringResult `json:"Get,omitempty"`
	Remove *UnitResult   `json:"Remove,omitempty"`
}

// UnitResult encodes Result<(), String>.
type UnitResult struct {
	err string
	ok  bool
}

func OkUnit() *UnitResult            { return &UnitResult{ok: true} }
func ErrUnit(msg string) *UnitResult { return &UnitResult{ok: false, err: msg} }
func (r *UnitResult) IsOk() bool     { return r.ok }
func (r *UnitResult) Err() string    { return r.err }

type wireUnitResult struct {
	Ok  json.RawMessage `json:"Ok,omitempty"`
	Err *string         `json:"Err,omitempty"`
}

func (r UnitResult) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(wireUnitResult{Ok: json.RawMessage("null")})
	}
	return json.Marshal(wireUnitResult{Err: &r.err})
}

func (r *UnitResult) UnmarshalJSON(data []byte) error {
	var w wireUnitResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Err != nil {
		r.ok, r.err = false, *w.Err
		return nil
	}
	r.ok, r.err = true, ""
	return nil
}

// StringResult encodes Result<Option<String>, String>: Ok(None) on a miss,
// Ok(Some(v)) on a hit, Err(msg) on failure.
type StringResult struct {
	value *string
	err   string
	ok    bool
}

func OkString(value *string) *StringResult { return &StringResult{ok: true, value: value} }
func ErrString(msg string) *StringResult   { return &StringResult{ok: false, err: msg} }
func (r *StringResult) IsOk() bool         { return r.ok }
func (r *StringResult) Err() string        { return r.err }
func (r *StringResult) Value() *string     { return r.value }

type wireStringResult struct {
	Ok  *string `json:"Ok"`
	Err *string `json:"Err,omitempty"`
}

func (r StringResult) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			Ok *string `json:"Ok"`
		}{Ok: r.value})
	}
	return json.Marshal(struct {
		Err string `json:"Err"`
	}{Err: r.err})
}

func (r *StringResult) UnmarshalJSON(data []byte) error {
	var w wireStringResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Err != nil {
		r.ok, r.err, r.value = false, *w.Err, nil
		return nil
	}
	r.ok, r.err, r.value = true, "", w.Ok
	return nil
}
