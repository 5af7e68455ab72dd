package mapper

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/bardlex/coinrpc/pkg/errors"
)

type fees struct {
	Base     btcutil.Amount
	Modified btcutil.Amount
}

type poolEntry struct {
	TxID    string
	Size    int64
	Fee     btcutil.Amount
	Depends []string
	Fees    fees
}

var feesTable = FieldTable[fees]{
	"base":     Field(Amount, func(f *fees) *btcutil.Amount { return &f.Base }),
	"modified": Field(Amount, func(f *fees) *btcutil.Amount { return &f.Modified }),
}

var poolTable = FieldTable[poolEntry]{
	"size":    Field(Int64, func(e *poolEntry) *int64 { return &e.Size }),
	"fee":     Field(Amount, func(e *poolEntry) *btcutil.Amount { return &e.Fee }),
	"depends": Field(List(String), func(e *poolEntry) *[]string { return &e.Depends }),
	"fees":    Nested(feesTable, func(e *poolEntry) *fees { return &e.Fees }),
	"legacy":  Ignore[poolEntry](),
}

func newPoolEntry(key string) poolEntry {
	return poolEntry{TxID: key, Depends: []string{}}
}

func TestKeyed_PreservesOrderAndFields(t *testing.T) {
	raw := json.RawMessage(`{
		"ffff": {"size": 250, "fee": 0.0001, "depends": ["aaaa"], "fees": {"base": 0.0001, "modified": "0.0002"}},
		"aaaa": {"size": 120, "fee": 0.00005, "depends": [], "legacy": 1},
		"cccc": {}
	}`)

	got, err := Keyed(poolTable, newPoolEntry)("getrawmempool", raw)
	if err != nil {
		t.Fatal(err)
	}

	keys := []string{"ffff", "aaaa", "cccc"}
	if len(got) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(got))
	}
	for i, k := range keys {
		if got[i].Key != k || got[i].Value.TxID != k {
			t.Errorf("entry %d key = %s, want %s", i, got[i].Key, k)
		}
	}

	first := got[0].Value
	if first.Size != 250 || first.Fee != 10_000 {
		t.Errorf("first entry = %+v", first)
	}
	if len(first.Depends) != 1 || first.Depends[0] != "aaaa" {
		t.Errorf("depends = %v", first.Depends)
	}
	if first.Fees.Base != 10_000 || first.Fees.Modified != 20_000 {
		t.Errorf("fees = %+v", first.Fees)
	}
	if got[1].Value.Fee != 5_000 {
		t.Errorf("second fee = %d", got[1].Value.Fee)
	}
}

func TestKeyed_UnknownFieldFailsWholeCall(t *testing.T) {
	raw := json.RawMessage(`{
		"aaaa": {"size": 1},
		"bbbb": {"size": 2, "bogusfield": true}
	}`)

	got, err := Keyed(poolTable, newPoolEntry)("getrawmempool", raw)
	if got != nil {
		t.Errorf("expected no partial result, got %v", got)
	}
	if !errors.IsType(err, errors.ErrorTypeUnknownField) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	ctx := errors.GetContext(err)
	if ctx["key"] != "bbbb" || ctx["property"] != "bogusfield" {
		t.Errorf("unexpected context %v", ctx)
	}
}

func TestKeyed_NestedUnknownField(t *testing.T) {
	raw := json.RawMessage(`{"aaaa": {"fees": {"base": 0.1, "surprise": 1}}}`)

	_, err := Keyed(poolTable, newPoolEntry)("getrawmempool", raw)
	if !errors.IsType(err, errors.ErrorTypeUnknownField) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if p := errors.GetContext(err)["property"]; p != "fees.surprise" {
		t.Errorf("property = %v, want fees.surprise", p)
	}
}

func TestKeyed_ParseErrorNamesPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		path string
	}{
		{"scalar", `{"aaaa": {"size": "big"}}`, "size"},
		{"nested", `{"aaaa": {"fees": {"base": "x"}}}`, "fees.base"},
		{"list element", `{"aaaa": {"depends": ["ok", 5]}}`, "depends.[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Keyed(poolTable, newPoolEntry)("getrawmempool", json.RawMessage(tt.raw))
			if !errors.IsType(err, errors.ErrorTypeParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
			ctx := errors.GetContext(err)
			if ctx["field"] != tt.path || ctx["key"] != "aaaa" {
				t.Errorf("context = %v, want field %s", ctx, tt.path)
			}
		})
	}
}

func TestKeyed_Shapes(t *testing.T) {
	empty, err := Keyed(poolTable, newPoolEntry)("getrawmempool", json.RawMessage(`{}`))
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("{} = %#v, %v", empty, err)
	}

	null, err := Keyed(poolTable, newPoolEntry)("getrawmempool", json.RawMessage(`null`))
	if err != nil || null == nil || len(null) != 0 {
		t.Errorf("null = %#v, %v", null, err)
	}

	for _, raw := range []string{`["aaaa"]`, `"aaaa"`, `{"aaaa": 5}`, `{"aaaa": {}} trailing`} {
		if _, err := Keyed(poolTable, newPoolEntry)("getrawmempool", json.RawMessage(raw)); !errors.IsType(err, errors.ErrorTypeParse) {
			t.Errorf("%s: expected parse error, got %v", raw, err)
		}
	}
}

func TestKeyed_DuplicateKeys(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
		key   string
	}{
		{"repeated txid", `{"aaaa": {"size": 1}, "aaaa": {"size": 2}}`, "aaaa", ""},
		{"repeated property", `{"aaaa": {"size": 1, "size": 2}}`, "size", "aaaa"},
		{"repeated nested property", `{"aaaa": {"fees": {"base": 0.1, "base": 0.2}}}`, "fees.base", "aaaa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Keyed(poolTable, newPoolEntry)("getrawmempool", json.RawMessage(tt.raw))
			if got != nil {
				t.Errorf("expected no partial result, got %v", got)
			}
			if !errors.IsType(err, errors.ErrorTypeParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
			ctx := errors.GetContext(err)
			if ctx["field"] != tt.field {
				t.Errorf("field = %v, want %s", ctx["field"], tt.field)
			}
			if tt.key != "" && ctx["key"] != tt.key {
				t.Errorf("key = %v, want %s", ctx["key"], tt.key)
			}
		})
	}
}
