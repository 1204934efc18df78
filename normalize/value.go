package normalize

import "strings"

type Kind uint8

const (
	KindScalar Kind = iota
	KindComposite
)

func (k Kind) String() string {
	if k == KindComposite {
		return "composite"
	}
	return "scalar"
}

// Value is either a Scalar string or a Composite of ordered child fields.
type Value struct {
	kind   Kind
	text   string
	fields Fields
}

func Scalar(text string) Value {
	return Value{kind: KindScalar, text: text}
}

func Composite(fields Fields) Value {
	return Value{kind: KindComposite, fields: fields.Clone()}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsComposite() bool {
	return v.kind == KindComposite
}

// Text returns the scalar text, or "" for composites.
func (v Value) Text() string {
	if v.kind == KindComposite {
		return ""
	}
	return v.text
}

func (v Value) Fields() Fields {
	if v.kind != KindComposite {
		return nil
	}
	return v.fields.Clone()
}

// Display renders a value as a single string. Composites join their non-empty
// children with a single space, in order.
func (v Value) Display() string {
	if v.kind != KindComposite {
		return v.text
	}
	parts := make([]string, 0, len(v.fields))
	for _, field := range v.fields {
		if text := strings.TrimSpace(field.Value.Display()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Child returns the entry stored under key, preferring an exact match over a
// case-insensitive one.
func (v Value) Child(key string) (Value, bool) {
	if v.kind != KindComposite {
		return Value{}, false
	}
	if child, ok := v.fields.Get(key); ok {
		return child, true
	}
	return v.fields.GetFold(key)
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindScalar {
		return v.text == other.text
	}
	return v.fields.Equal(other.fields)
}

type Field struct {
	Key   string
	Value Value
}

// Fields is an ordered key/value list. Keys are unique.
type Fields []Field

func (f Fields) Len() int {
	return len(f)
}

func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for _, field := range f {
		keys = append(keys, field.Key)
	}
	return keys
}

func (f Fields) Get(key string) (Value, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return Value{}, false
}

func (f Fields) GetFold(key string) (Value, bool) {
	for _, field := range f {
		if strings.EqualFold(field.Key, key) {
			return field.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of an existing key in place or appends a new one.
func (f Fields) Set(key string, value Value) Fields {
	for index := range f {
		if f[index].Key == key {
			out := f.Clone()
			out[index].Value = value
			return out
		}
	}
	return append(f.Clone(), Field{Key: key, Value: value})
}

// Merge overlays overrides on f. A colliding key keeps its position in f and
// takes the override's value; new keys are appended in override order.
func (f Fields) Merge(overrides Fields) Fields {
	builder := newFieldsBuilder(len(f) + len(overrides))
	for _, field := range f {
		builder.set(field.Key, field.Value)
	}
	for _, field := range overrides {
		builder.set(field.Key, field.Value)
	}
	return builder.build()
}

func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

func (f Fields) Equal(other Fields) bool {
	if len(f) != len(other) {
		return false
	}
	for index := range f {
		if f[index].Key != other[index].Key || !f[index].Value.Equal(other[index].Value) {
			return false
		}
	}
	return true
}

// fieldsBuilder assembles Fields in linear time. Keys are indexed on insert
// and repeated scalar values are joined once, in build.
type fieldsBuilder struct {
	fields   Fields
	index    map[string]int
	repeated map[int][]string
}

func newFieldsBuilder(capacity int) *fieldsBuilder {
	return &fieldsBuilder{
		fields: make(Fields, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

// set replaces the value of an existing key in place or appends a new one.
func (b *fieldsBuilder) set(key string, value Value) {
	if position, ok := b.index[key]; ok {
		b.fields[position].Value = value
		delete(b.repeated, position)
		return
	}
	b.index[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: key, Value: value})
}

// appendRepeated adds a scalar value for key. Non-empty values of a repeated
// key are joined with ", ".
func (b *fieldsBuilder) appendRepeated(key string, value string) {
	position, ok := b.index[key]
	if !ok {
		b.set(key, Scalar(value))
		return
	}
	if b.repeated == nil {
		b.repeated = map[int][]string{}
	}
	parts, started := b.repeated[position]
	if !started {
		parts = []string{b.fields[position].Value.Text()}
	}
	b.repeated[position] = append(parts, value)
}

func (b *fieldsBuilder) build() Fields {
	for position, parts := range b.repeated {
		kept := parts[:0]
		for _, part := range parts {
			if part != "" {
				kept = append(kept, part)
			}
		}
		b.fields[position].Value = Scalar(strings.Join(kept, ", "))
	}
	b.repeated = nil
	return b.fields
}
