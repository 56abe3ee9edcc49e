package proto

import (
	"encoding/json"
	"testing"
)

func TestRequestWireShape(t *testing.T) {
	cases := []struct {
		req  Request
		want string
	}{
		{SetRequest("k", "v"), `{"Set":{"key":"k","value":"v"}}`},
		{GetRequest("k"), `{"Get":{"key":"k"}}`},
		{RemoveRequest("k"), `{"Remove":{"key":"k"}}`},
	}
	for _, c := range cases {
		buf, err := json.Marshal(c.req)
		if err != nil {
			t.Fatalf("marshal %+v: %v", c.req, err)
		}
		if got := string(buf); got != c.want {
			t.Errorf("marshal %+v = %s, want %s", c.req, got, c.want)
		}
	}
}

func TestUnitResultWireShape(t *testing.T) {
	buf, _ := json.Marshal(OkUnit())
	if got, want := string(buf), `{"Ok":null}`; got != want {
		t.Errorf("OkUnit() = %s, want %s", got, want)
	}

	buf, _ = json.Marshal(ErrUnit("boom"))
	if got, want := string(buf), `{"Err":"boom"}`; got != want {
		t.Errorf("ErrUnit() = %s, want %s", got, want)
	}

	var r UnitResult
	if err := json.Unmarshal([]byte(`{"Ok":null}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.IsOk() {
		t.Errorf("IsOk() = false after unmarshaling {\"Ok\":null}")
	}
}

func TestStringResultWireShape(t *testing.T) {
	v := "hello"
	buf, _ := json.Marshal(OkString(&v))
	if got, want := string(buf), `{"Ok":"hello"}`; got != want {
		t.Errorf("OkString(hit) = %s, want %s", got, want)
	}

	buf, _ = json.Marshal(OkString(nil))
	if got, want := string(buf), `{"Ok":null}`; got != want {
		t.Errorf("OkString(miss) = %s, want %s", got, want)
	}

	buf, _ = json.Marshal(ErrString("nope"))
	if got, want := string(buf), `{"Err":"nope"}`; got != want {
		t.Errorf("ErrString() = %s, want %s", got, want)
	}

	var r StringResult
	if err := json.Unmarshal([]byte(`{"Ok":"hello"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.IsOk() || r.Value() == nil || *r.Value() != "hello" {
		t.Errorf("unmarshal hit: IsOk=%v Value=%v", r.IsOk(), r.Value())
	}

	var miss StringResult
	if err := json.Unmarshal([]byte(`{"Ok":null}`), &miss); err != nil {
		t.Fatalf("unmarshal miss: %v", err)
	}
	if !miss.IsOk() || miss.Value() != nil {
		t.Errorf("unmarshal miss: IsOk=%v Value=%v", miss.IsOk(), miss.Value())
	}
}

func TestResponseEnvelopeRoundTrip(t *testing.T) {
	resp := Response{Get: OkString(nil)}
	buf, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(buf), `{"Get":{"Ok":null}}`; got != want {
		t.Errorf("Response{Get: miss} = %s, want %s", got, want)
	}

	var decoded Response
	if err := json.Unmarshal(buf, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Get == nil || !decoded.Get.IsOk() || decoded.Get.Value() != nil {
		t.Errorf("decoded Response mismatch: %+v", decoded)
	}
	if decoded.Set != nil || decoded.Remove != nil {
		t.Errorf("decoded Response has unexpected fields set: %+v", decoded)
	}
}
