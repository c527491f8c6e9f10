package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/malegalny/Brain/internal/model"
)

func normalizeOne(t *testing.T, doc string) Conversation {
	t.Helper()
	recs, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	conv, err := Normalize(recs[0])
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return conv
}

func TestNormalizeSingleMessage(t *testing.T) {
	conv := normalizeOne(t, `[{"id":"c1","title":"My Dog Visit","create_time":1700000000,
		"mapping":{"n1":{"message":{"author":{"role":"user"},"create_time":1700000000,
		"content":{"parts":["My dog needs a vet checkup."]}}}}}]`)

	if conv.Title != "My Dog Visit" {
		t.Errorf("expected title 'My Dog Visit', got %q", conv.Title)
	}
	if conv.ExternalID != "c1" {
		t.Errorf("expected external id c1, got %q", conv.ExternalID)
	}
	want := time.Unix(1700000000, 0).UTC()
	if conv.Date == nil || !conv.Date.Equal(want) {
		t.Errorf("expected date %v, got %v", want, conv.Date)
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conv.Messages))
	}
	m := conv.Messages[0]
	if m.Role != "user" || m.Text != "My dog needs a vet checkup." {
		t.Errorf("unexpected message %+v", m)
	}
	if conv.Blob() != "My Dog Visit\nMy dog needs a vet checkup." {
		t.Errorf("unexpected blob %q", conv.Blob())
	}
}

func TestNormalizeOrdering(t *testing.T) {
	conv := normalizeOne(t, `[{"mapping":{
		"root":{"message":null},
		"empty":{"message":{}},
		"structural":{},
		"nil":null,
		"blank":"",
		"zero":0,
		"no":false,
		"msgBlank":{"message":""},
		"msgFalse":{"message":false},
		"msgZero":{"message":0},
		"msgList":{"message":[]},
		"late":{"message":{"create_time":300,"content":{"parts":["late"]}}},
		"none1":{"message":{"content":{"parts":["none1"]}}},
		"early":{"message":{"create_time":"100","content":{"parts":["early"]}}},
		"bad":{"message":{"create_time":"soon","content":{"parts":["bad"]}}},
		"none2":{"message":{"create_time":null,"content":{"parts":["none2"]}}},
		"mid":{"message":{"create_time":200.5,"content":{"parts":["mid"]}}}
	}}]`)

	var got []string
	for _, m := range conv.Messages {
		got = append(got, m.Text)
	}
	want := []string{"early", "mid", "late", "none1", "bad", "none2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}

	seenNil := false
	for _, m := range conv.Messages {
		if m.CreatedAt == nil {
			seenNil = true
		} else if seenNil {
			t.Error("timestamped message ordered after a missing timestamp")
		}
	}
	if conv.Messages[1].CreatedAt.UnixMilli() != 200500 {
		t.Errorf("expected sub-second timestamp kept, got %v", conv.Messages[1].CreatedAt)
	}
}

func TestNormalizeStableAcrossRuns(t *testing.T) {
	doc := `[{"mapping":{"b":{"message":{"content":{"parts":["b"]}}},"a":{"message":{"content":{"parts":["a"]}}},"c":{"message":{"content":{"parts":["c"]}}}}}]`
	first := normalizeOne(t, doc)
	for i := 0; i < 20; i++ {
		again := normalizeOne(t, doc)
		if !reflect.DeepEqual(first.Messages, again.Messages) {
			t.Fatalf("run %d produced a different order", i)
		}
	}
	if first.Messages[0].Text != "b" {
		t.Errorf("expected document order for untimed messages, got %q first", first.Messages[0].Text)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	conv := normalizeOne(t, `[{"title":"","create_time":"nope","mapping":{
		"n":{"message":{"author":{"role":null},"content":{"parts":[" hi ",null,{"k":1},"there "]}}},
		"m":{"message":{"author":"weird","content":"not an object"}}
	}}]`)

	if conv.Title != "Untitled" {
		t.Errorf("expected 'Untitled', got %q", conv.Title)
	}
	if conv.Date != nil {
		t.Errorf("expected nil date, got %v", conv.Date)
	}
	if conv.ExternalID != "" {
		t.Errorf("expected no external id, got %q", conv.ExternalID)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != "unknown" {
		t.Errorf("expected role 'unknown', got %q", conv.Messages[0].Role)
	}
	if conv.Messages[0].Text != "hi \n{\"k\":1}\nthere" {
		t.Errorf("unexpected text %q", conv.Messages[0].Text)
	}
	if conv.Messages[1].Role != "unknown" || conv.Messages[1].Text != "" {
		t.Errorf("unexpected fallback message %+v", conv.Messages[1])
	}
	if conv.Blob() != "Untitled\nhi \n{\"k\":1}\nthere" {
		t.Errorf("empty texts must not reach the blob, got %q", conv.Blob())
	}
}

func TestNormalizeFalsyMappingMeansNoMessages(t *testing.T) {
	for _, mapping := range []string{`false`, `0`, `""`, `[]`, `{}`, `null`} {
		conv := normalizeOne(t, `[{"title":"t","mapping":`+mapping+`}]`)
		if len(conv.Messages) != 0 {
			t.Errorf("mapping %s: expected no messages, got %d", mapping, len(conv.Messages))
		}
	}
}

func TestNormalizeNumericID(t *testing.T) {
	conv := normalizeOne(t, `[{"id":42,"title":7}]`)
	if conv.ExternalID != "42" || conv.Title != "7" {
		t.Errorf("unexpected id/title %q/%q", conv.ExternalID, conv.Title)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(conv.Messages))
	}
}

func TestNormalizeRejectsStructuralErrors(t *testing.T) {
	for _, doc := range []string{
		`[{"mapping":"nope"}]`,
		`[{"mapping":{"n":"not a node"}}]`,
		`[{"mapping":{"n":{"message":"hello"}}}]`,
	} {
		recs, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("parse %s: %v", doc, err)
		}
		if _, err := Normalize(recs[0]); !errors.Is(err, model.ErrManifest) {
			t.Errorf("%s: expected ErrManifest, got %v", doc, err)
		}
	}
}

func TestParseRejectsNonList(t *testing.T) {
	for _, doc := range []string{`{"id":"c1"}`, `null`, `"x"`, `[1]`, `[{"a":1}, "b"]`, `not json`} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, model.ErrManifest) {
			t.Errorf("%s: expected ErrManifest, got %v", doc, err)
		}
	}
	recs, err := Parse([]byte(`[]`))
	if err != nil || len(recs) != 0 {
		t.Errorf("expected empty list to parse, got %v, %v", recs, err)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	if _, err := Locate(dir); !errors.Is(err, model.ErrManifest) {
		t.Fatalf("expected ErrManifest for missing manifest, got %v", err)
	}

	deep := filepath.Join(dir, "a", "b", FileName)
	shallow := filepath.Join(dir, "z", FileName)
	for _, p := range []string{deep, shallow} {
		os.MkdirAll(filepath.Dir(p), 0o755)
		os.WriteFile(p, []byte("[]"), 0o644)
	}

	got, err := Locate(dir)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != shallow {
		t.Errorf("expected %s, got %s", shallow, got)
	}
}

func TestEpoch(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{`1700000000`, true},
		{`1700000000.25`, true},
		{`"1700000000"`, true},
		{`-1`, true},
		{`null`, false},
		{`"later"`, false},
		{`true`, false},
		{`{}`, false},
		{`"NaN"`, false},
		{`"inf"`, false},
		{`1e300`, true},
	}
	for _, c := range cases {
		var e Epoch
		if err := e.UnmarshalJSON([]byte(c.in)); err != nil {
			t.Fatalf("%s: unexpected error %v", c.in, err)
		}
		if e.Valid != c.valid {
			t.Errorf("%s: expected valid=%v, got %v", c.in, c.valid, e.Valid)
		}
	}

	huge := Epoch{Seconds: 1e300, Valid: true}
	if huge.Time() != nil {
		t.Error("out of range epoch should convert to nil")
	}
	if (Epoch{}).Time() != nil {
		t.Error("invalid epoch should convert to nil")
	}
}
