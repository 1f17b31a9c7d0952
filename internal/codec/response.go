package codec

import "strings"

// OK formats a successful response. result is a pre-built JSON fragment
// (object, array, or omitted) — the codec does not build result payloads
// itself, callers format their own via Builder below.
func OK(id int, result string) string {
	if result == "" {
		return `{"id":` + itoa(id) + `,"ok":true}` + "\n"
	}
	return `{"id":` + itoa(id) + `,"ok":true,"result":` + result + `}` + "\n"
}

// Err formats a failed response. errText is embedded verbatim (after
// escaping) in the "error" field.
func Err(id int, errText string) string {
	return `{"id":` + itoa(id) + `,"ok":false,"error":"` + escape(errText) + `"}` + "\n"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func escape(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Builder accumulates a JSON object's fields in insertion order, for
// handlers that need to produce a `result` payload (status, input_get,
// framebuffer_dump, ...). It supports the scalar and uint32-array fields
// this protocol's responses use, plus Raw for nesting a pre-built fragment.
type Builder struct {
	b     strings.Builder
	first bool
}

// NewBuilder starts a new object builder.
func NewBuilder() *Builder {
	b := &Builder{first: true}
	b.b.WriteByte('{')
	return b
}

func (o *Builder) comma() {
	if !o.first {
		o.b.WriteByte(',')
	}
	o.first = false
}

// Int adds an integer field.
func (o *Builder) Int(key string, v int) *Builder {
	o.comma()
	o.b.WriteString(`"` + key + `":` + itoa(v))
	return o
}

// Uint32 adds a uint32 field.
func (o *Builder) Uint32(key string, v uint32) *Builder {
	return o.Int(key, int(v))
}

// Uint64 adds a uint64 field without the sign-wrap an int conversion would
// cause for values above math.MaxInt64 (relevant to 64-bit mem_read).
func (o *Builder) Uint64(key string, v uint64) *Builder {
	o.comma()
	o.b.WriteString(`"` + key + `":` + utoa(v))
	return o
}

func utoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Bool adds a boolean field.
func (o *Builder) Bool(key string, v bool) *Builder {
	o.comma()
	if v {
		o.b.WriteString(`"` + key + `":true`)
	} else {
		o.b.WriteString(`"` + key + `":false`)
	}
	return o
}

// Str adds a string field, escaping quotes/backslashes.
func (o *Builder) Str(key, v string) *Builder {
	o.comma()
	o.b.WriteString(`"` + key + `":"` + escape(v) + `"`)
	return o
}

// RawUint32Array adds an array-of-uint32 field, e.g. the input shadow.
func (o *Builder) RawUint32Array(key string, vs []uint32) *Builder {
	o.comma()
	o.b.WriteString(`"` + key + `":[`)
	for i, v := range vs {
		if i > 0 {
			o.b.WriteByte(',')
		}
		o.b.WriteString(itoa(int(v)))
	}
	o.b.WriteString(`]`)
	return o
}

// Raw adds a field whose value is a pre-built JSON fragment (used to nest a
// child Builder's output).
func (o *Builder) Raw(key, json string) *Builder {
	o.comma()
	o.b.WriteString(`"` + key + `":` + json)
	return o
}

// String renders the accumulated object.
func (o *Builder) String() string {
	return o.b.String() + "}"
}
