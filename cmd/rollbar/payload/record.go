package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Fields is the generic string-keyed bag records are normalized from and
// denormalized into.
type Fields map[string]any

// Pop removes key from the bag and returns its value.
func (f Fields) Pop(key string) (any, bool) {
	v, ok := f[key]
	if ok {
		delete(f, key)
	}
	return v, ok
}

// PopString consumes key when it holds a string, empty strings included.
// Values of any other type stay in the bag so they survive a round trip, and
// nil is returned.
func (f Fields) PopString(key string) *string {
	s, ok := f[key].(string)
	if !ok {
		return nil
	}
	delete(f, key)
	return &s
}

// PopMap consumes key when it holds a JSON object.
func (f Fields) PopMap(key string) map[string]any {
	m, ok := f[key].(map[string]any)
	if !ok {
		return nil
	}
	delete(f, key)
	return m
}

// PopStringMap consumes key when it holds a JSON object whose values are all
// strings.
func (f Fields) PopStringMap(key string) map[string]string {
	m, ok := f[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		out[k] = s
	}
	delete(f, key)
	return out
}

// FieldWriter collects the typed fields of a record in the order they are
// written.
type FieldWriter struct {
	keys   []string
	values map[string]any
}

func newFieldWriter() *FieldWriter {
	return &FieldWriter{values: make(map[string]any)}
}

// Put writes value under key. Nil values are skipped.
func (w *FieldWriter) Put(key string, value any) {
	if value == nil {
		return
	}
	if _, ok := w.values[key]; !ok {
		w.keys = append(w.keys, key)
	}
	w.values[key] = value
}

// PutString writes *value under key. A nil value is absent and skipped; an
// empty string is written.
func (w *FieldWriter) PutString(key string, value *string) {
	if value == nil {
		return
	}
	w.Put(key, *value)
}

// Has reports whether a typed field was written under key.
func (w *FieldWriter) Has(key string) bool {
	_, ok := w.values[key]
	return ok
}

// Extensible holds the additional fields of a record. Embed it in a type and
// implement Normalize and Denormalize to make that type a Record.
type Extensible struct {
	additional Fields
}

// Set stores an additional field. Keys owned by a typed field are shadowed
// by that field when the record is serialized.
func (e *Extensible) Set(key string, value any) {
	if e.additional == nil {
		e.additional = make(Fields)
	}
	e.additional[key] = value
}

// Get returns an additional field.
func (e *Extensible) Get(key string) (any, bool) {
	v, ok := e.additional[key]
	return v, ok
}

// Delete removes an additional field.
func (e *Extensible) Delete(key string) {
	delete(e.additional, key)
}

// Additional returns a copy of the additional fields.
func (e *Extensible) Additional() Fields {
	return lo.Assign(Fields{}, e.additional)
}

func (e *Extensible) extensible() *Extensible { return e }

// Record is a serializable object with a fixed set of typed fields and an
// open set of additional fields.
type Record interface {
	// Denormalize writes every non-absent typed field under its wire key.
	Denormalize(w *FieldWriter)
	// Normalize moves every known wire key out of f into its typed field.
	Normalize(f Fields)
	extensible() *Extensible
}

// MarshalRecord renders r as one flat JSON object: typed fields first in the
// order Denormalize writes them, then additional fields sorted by key.
func MarshalRecord(r Record) ([]byte, error) {
	w := newFieldWriter()
	r.Denormalize(w)

	extra := r.extensible().additional
	extraKeys := lo.Filter(lo.Keys(map[string]any(extra)), func(key string, _ int) bool {
		return !w.Has(key)
	})
	slices.Sort(extraKeys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	writeField := func(key string, value any) error {
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode field %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	for _, key := range w.keys {
		if err := writeField(key, w.values[key]); err != nil {
			return nil, err
		}
	}
	for _, key := range extraKeys {
		if err := writeField(key, extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalRecord decodes a flat JSON object into r. All keys land in the
// additional fields first, then Normalize claims the ones r knows about.
// Numbers are kept as json.Number so unknown fields re-encode unchanged.
func UnmarshalRecord(data []byte, r Record) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if fields == nil {
		fields = make(Fields)
	}
	r.Normalize(fields)
	r.extensible().additional = fields
	return nil
}
