// SPDX-License-Identifier: MIT

package algo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/katalvlaran/algokit/matrix"
)

// Tag identifies a serializable concrete type on the wire.
type Tag uint32

// Serializable is implemented by every partial result, result and model.
// Serialize walks the fields through the archive; the same method serves
// encoding and decoding because every archive method takes a pointer.
type Serializable interface {
	SerializationTag() Tag
	Serialize(a Archive) error
}

// Archive is the field visitor handed to Serialize.
type Archive interface {
	// Decoding reports whether the archive fills fields rather than reading them.
	Decoding() bool
	Dense(name string, m **matrix.Dense) error
	Denses(name string, ms *[]*matrix.Dense) error
	Int(name string, v *int) error
	Float(name string, v *float64) error
	Bool(name string, v *bool) error
	// Object walks a nested value whose concrete type is fixed by the parent.
	Object(name string, s Serializable) error
	// Objects walks a list of values of any registered type.
	Objects(name string, ss *[]Serializable) error
}

var (
	// ErrUnknownTag is returned when decoding a tag nobody registered.
	ErrUnknownTag = errors.New("algo: unknown serialization tag")
	// ErrTagMismatch is returned by UnmarshalInto when the payload holds another type.
	ErrTagMismatch = errors.New("algo: serialization tag mismatch")
	// ErrMissingField is returned when a payload lacks a field the type expects.
	ErrMissingField = errors.New("algo: missing serialized field")
)

var (
	typesMu sync.RWMutex
	types   = map[Tag]func() Serializable{}
)

// RegisterType associates tag with a constructor so Unmarshal can rebuild the
// concrete type. Packages call it from init; a duplicate tag panics.
func RegisterType(tag Tag, factory func() Serializable) {
	typesMu.Lock()
	defer typesMu.Unlock()
	if _, dup := types[tag]; dup {
		panic(fmt.Sprintf("algo: serialization tag %d registered twice", tag))
	}
	types[tag] = factory
}

func newByTag(tag Tag) (Serializable, error) {
	typesMu.RLock()
	f, ok := types[tag]
	typesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}

	return f(), nil
}

type wireRecord struct {
	Tag    Tag                  `cbor:"1,keyasint"`
	Fields map[string]wireField `cbor:"2,keyasint"`
}

type wireField struct {
	Nil    bool        `cbor:"1,keyasint,omitempty"`
	Rows   int         `cbor:"2,keyasint,omitempty"`
	Cols   int         `cbor:"3,keyasint,omitempty"`
	Data   []float64   `cbor:"4,keyasint,omitempty"`
	Int    *int64      `cbor:"5,keyasint,omitempty"`
	Float  *float64    `cbor:"6,keyasint,omitempty"`
	Bool   *bool       `cbor:"7,keyasint,omitempty"`
	List   []wireField `cbor:"8,keyasint,omitempty"`
	Record *wireRecord `cbor:"9,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes s as a tagged CBOR record.
func Marshal(s Serializable) ([]byte, error) {
	rec, err := encodeRecord(s)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("algo: marshal: %w", err)
	}

	return data, nil
}

// Unmarshal decodes a record into a new value of its registered type.
func Unmarshal(data []byte) (Serializable, error) {
	var rec wireRecord
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("algo: unmarshal: %w", err)
	}
	s, err := newByTag(rec.Tag)
	if err != nil {
		return nil, err
	}
	if err = s.Serialize(&decoder{rec: &rec}); err != nil {
		return nil, err
	}

	return s, nil
}

// UnmarshalInto decodes a record into s, which must carry the same tag.
func UnmarshalInto(data []byte, s Serializable) error {
	var rec wireRecord
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("algo: unmarshal: %w", err)
	}
	if rec.Tag != s.SerializationTag() {
		return fmt.Errorf("%w: payload %d, target %d", ErrTagMismatch, rec.Tag, s.SerializationTag())
	}

	return s.Serialize(&decoder{rec: &rec})
}

func encodeRecord(s Serializable) (*wireRecord, error) {
	enc := &encoder{rec: &wireRecord{Tag: s.SerializationTag(), Fields: map[string]wireField{}}}
	if err := s.Serialize(enc); err != nil {
		return nil, err
	}

	return enc.rec, nil
}

func denseField(m *matrix.Dense) wireField {
	if !m.Allocated() {
		return wireField{Nil: true}
	}

	return wireField{Rows: m.Rows(), Cols: m.Cols(), Data: m.Values()}
}

func fieldDense(f wireField) (*matrix.Dense, error) {
	if f.Nil {
		return nil, nil
	}

	return matrix.NewDenseFrom(f.Rows, f.Cols, f.Data, matrix.WithNoValidateNaNInf())
}

type encoder struct{ rec *wireRecord }

func (e *encoder) Decoding() bool { return false }

func (e *encoder) Dense(name string, m **matrix.Dense) error {
	e.rec.Fields[name] = denseField(*m)
	return nil
}

func (e *encoder) Denses(name string, ms *[]*matrix.Dense) error {
	list := make([]wireField, len(*ms))
	for i, m := range *ms {
		list[i] = denseField(m)
	}
	e.rec.Fields[name] = wireField{List: list, Nil: *ms == nil}
	return nil
}

func (e *encoder) Int(name string, v *int) error {
	x := int64(*v)
	e.rec.Fields[name] = wireField{Int: &x}
	return nil
}

func (e *encoder) Float(name string, v *float64) error {
	x := *v
	e.rec.Fields[name] = wireField{Float: &x}
	return nil
}

func (e *encoder) Bool(name string, v *bool) error {
	x := *v
	e.rec.Fields[name] = wireField{Bool: &x}
	return nil
}

func (e *encoder) Object(name string, s Serializable) error {
	rec, err := encodeRecord(s)
	if err != nil {
		return fmt.Errorf("algo: encode %s: %w", name, err)
	}
	e.rec.Fields[name] = wireField{Record: rec}
	return nil
}

func (e *encoder) Objects(name string, ss *[]Serializable) error {
	list := make([]wireField, len(*ss))
	for i, s := range *ss {
		rec, err := encodeRecord(s)
		if err != nil {
			return fmt.Errorf("algo: encode %s[%d]: %w", name, i, err)
		}
		list[i] = wireField{Record: rec}
	}
	e.rec.Fields[name] = wireField{List: list}
	return nil
}

type decoder struct{ rec *wireRecord }

func (d *decoder) Decoding() bool { return true }

func (d *decoder) field(name string) (wireField, error) {
	f, ok := d.rec.Fields[name]
	if !ok {
		return wireField{}, fmt.Errorf("%w: %q (tag %d)", ErrMissingField, name, d.rec.Tag)
	}

	return f, nil
}

func (d *decoder) Dense(name string, m **matrix.Dense) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	if *m, err = fieldDense(f); err != nil {
		return fmt.Errorf("algo: decode %s: %w", name, err)
	}
	return nil
}

func (d *decoder) Denses(name string, ms *[]*matrix.Dense) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	if f.Nil {
		*ms = nil
		return nil
	}
	out := make([]*matrix.Dense, len(f.List))
	for i, item := range f.List {
		if out[i], err = fieldDense(item); err != nil {
			return fmt.Errorf("algo: decode %s[%d]: %w", name, i, err)
		}
	}
	*ms = out
	return nil
}

func (d *decoder) Int(name string, v *int) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	if f.Int == nil {
		return fmt.Errorf("%w: %q is not an integer", ErrMissingField, name)
	}
	*v = int(*f.Int)
	return nil
}

func (d *decoder) Float(name string, v *float64) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	if f.Float == nil {
		return fmt.Errorf("%w: %q is not a float", ErrMissingField, name)
	}
	*v = *f.Float
	return nil
}

func (d *decoder) Bool(name string, v *bool) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	if f.Bool == nil {
		return fmt.Errorf("%w: %q is not a bool", ErrMissingField, name)
	}
	*v = *f.Bool
	return nil
}

func (d *decoder) Object(name string, s Serializable) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	if f.Record == nil {
		return fmt.Errorf("%w: %q is not a record", ErrMissingField, name)
	}
	if f.Record.Tag != s.SerializationTag() {
		return fmt.Errorf("%w: field %q", ErrTagMismatch, name)
	}
	return s.Serialize(&decoder{rec: f.Record})
}

func (d *decoder) Objects(name string, ss *[]Serializable) error {
	f, err := d.field(name)
	if err != nil {
		return err
	}
	out := make([]Serializable, len(f.List))
	for i, item := range f.List {
		if item.Record == nil {
			return fmt.Errorf("%w: %s[%d] is not a record", ErrMissingField, name, i)
		}
		s, err := newByTag(item.Record.Tag)
		if err != nil {
			return err
		}
		if err = s.Serialize(&decoder{rec: item.Record}); err != nil {
			return err
		}
		out[i] = s
	}
	*ss = out
	return nil
}
