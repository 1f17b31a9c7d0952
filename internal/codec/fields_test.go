package codec

import "testing"

func TestIntDecimal(t *testing.T) {
	v, ok := Int(`{"id":42,"cmd":"pause"}`, "id")
	if !ok || v != 42 {
		t.Fatalf("Int(id) = %d, %v; want 42, true", v, ok)
	}
}

func TestIntHex(t *testing.T) {
	v, ok := Int(`{"addr":0x1000}`, "addr")
	if !ok || v != 0x1000 {
		t.Fatalf("Int(addr) = %d, %v; want 4096, true", v, ok)
	}
}

func TestIntNegative(t *testing.T) {
	v, ok := Int(`{"x":-5}`, "x")
	if !ok || v != -5 {
		t.Fatalf("Int(x) = %d, %v; want -5, true", v, ok)
	}
}

func TestIntMissing(t *testing.T) {
	if _, ok := Int(`{"id":1}`, "count"); ok {
		t.Fatal("expected not-present for missing key")
	}
}

func TestIntNoDigits(t *testing.T) {
	if _, ok := Int(`{"count":"oops"}`, "count"); ok {
		t.Fatal("expected not-present when no digit follows the colon")
	}
}

func TestUint32RangeChecked(t *testing.T) {
	v, ok := Uint32(`{"addr":4294967295}`, "addr")
	if !ok || v != 4294967295 {
		t.Fatalf("Uint32 = %d, %v; want max uint32, true", v, ok)
	}
}

func TestUint64FullRange(t *testing.T) {
	v, ok := Uint64(`{"value":18446744073709551615}`, "value")
	if !ok || v != 18446744073709551615 {
		t.Fatalf("Uint64 = %d, %v; want max uint64, true", v, ok)
	}
}

func TestUint64Hex(t *testing.T) {
	v, ok := Uint64(`{"value":0xdeadbeef}`, "value")
	if !ok || v != 0xdeadbeef {
		t.Fatalf("Uint64 = %d, %v; want 0xdeadbeef, true", v, ok)
	}
}

func TestBoolLiterals(t *testing.T) {
	v, ok := Bool(`{"enabled":true}`, "enabled")
	if !ok || !v {
		t.Fatalf("Bool(true) = %v, %v", v, ok)
	}
	v, ok = Bool(`{"enabled":false}`, "enabled")
	if !ok || v {
		t.Fatalf("Bool(false) = %v, %v", v, ok)
	}
}

func TestBoolFromInt(t *testing.T) {
	v, ok := Bool(`{"rotate180":1}`, "rotate180")
	if !ok || !v {
		t.Fatalf("Bool(1) = %v, %v; want true", v, ok)
	}
	v, ok = Bool(`{"rotate180":0}`, "rotate180")
	if !ok || v {
		t.Fatalf("Bool(0) = %v, %v; want false", v, ok)
	}
}

func TestStringBasic(t *testing.T) {
	v, ok := String(`{"cmd":"save_state"}`, "cmd")
	if !ok || v != "save_state" {
		t.Fatalf("String = %q, %v; want save_state, true", v, ok)
	}
}

func TestStringEscapedQuote(t *testing.T) {
	// The codec defers the quote test by one char on a backslash: the
	// backslash is dropped and the following char (here a quote) is kept
	// verbatim. No other JSON unescaping is done.
	v, ok := String(`{"path":"/tmp/\"odd\".ppm"}`, "path")
	if !ok {
		t.Fatal("expected ok for escaped-quote string")
	}
	if v != `/tmp/"odd".ppm` {
		t.Fatalf("String = %q", v)
	}
}

func TestStringMissingQuote(t *testing.T) {
	if _, ok := String(`{"path":123}`, "path"); ok {
		t.Fatal("expected not-present when value has no leading quote")
	}
}

func TestStringUnterminated(t *testing.T) {
	if _, ok := String(`{"path":"/tmp/x`, "path"); ok {
		t.Fatal("expected not-present for an unterminated string")
	}
}

func TestFindValueWhitespaceAndColon(t *testing.T) {
	v, ok := Int(`{"id"   :   7}`, "id")
	if !ok || v != 7 {
		t.Fatalf("Int with extra whitespace = %d, %v", v, ok)
	}
}

func TestFindValueDoesNotMatchKeyPrefix(t *testing.T) {
	if _, ok := Int(`{"idx":1}`, "id"); ok {
		t.Fatal("expected not-present: the quoted key \"idx\" must not match a lookup of \"id\"")
	}
}
