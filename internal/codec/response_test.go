package codec

import "testing"

func TestOKNoResult(t *testing.T) {
	got := OK(1, "")
	want := `{"id":1,"ok":true}` + "\n"
	if got != want {
		t.Fatalf("OK() = %q, want %q", got, want)
	}
}

func TestOKWithResult(t *testing.T) {
	result := NewBuilder().Int("advanced", 3).Int("frame", 103).String()
	got := OK(2, result)
	want := `{"id":2,"ok":true,"result":{"advanced":3,"frame":103}}` + "\n"
	if got != want {
		t.Fatalf("OK() = %q, want %q", got, want)
	}
}

func TestErr(t *testing.T) {
	got := Err(9, "unknown command")
	want := `{"id":9,"ok":false,"error":"unknown command"}` + "\n"
	if got != want {
		t.Fatalf("Err() = %q, want %q", got, want)
	}
}

func TestErrEscapesQuotes(t *testing.T) {
	got := Err(1, `bad "value"`)
	want := `{"id":1,"ok":false,"error":"bad \"value\""}` + "\n"
	if got != want {
		t.Fatalf("Err() = %q, want %q", got, want)
	}
}

func TestBuilderFields(t *testing.T) {
	result := NewBuilder().
		Uint32("port", 1).
		Bool("ok", true).
		Str("name", "hud").
		RawUint32Array("shadow", []uint32{1, 2, 3, 4}).
		String()

	want := `{"port":1,"ok":true,"name":"hud","shadow":[1,2,3,4]}`
	if result != want {
		t.Fatalf("Builder = %q, want %q", result, want)
	}
}

func TestBuilderNegativeInt(t *testing.T) {
	result := NewBuilder().Int("value", -7).String()
	if result != `{"value":-7}` {
		t.Fatalf("Builder = %q", result)
	}
}

func TestBuilderUint64FullRange(t *testing.T) {
	result := NewBuilder().Uint64("value", 18446744073709551615).String()
	want := `{"value":18446744073709551615}`
	if result != want {
		t.Fatalf("Builder = %q, want %q", result, want)
	}
}

func TestBuilderRawNesting(t *testing.T) {
	inner := NewBuilder().Str("name", "full").Int("x_milli", 0).String()
	outer := NewBuilder().Raw("preset", inner).String()
	want := `{"preset":{"name":"full","x_milli":0}}`
	if outer != want {
		t.Fatalf("Builder = %q, want %q", outer, want)
	}
}
