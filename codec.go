package fracwire

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"sync"
)

// Marshaler is implemented by types that encode themselves.
type Marshaler interface {
	MarshalWire(enc Encoder) error
}

// Unmarshaler is implemented by types that decode themselves.
type Unmarshaler interface {
	UnmarshalWire(dec Decoder) error
}

// Packed marks a struct as packed when embedded:
//
//	type Point struct {
//		fracwire.Packed
//		X, Y int32
//	}
//
// Packed structs are written as one untagged body with no field keys. They
// are compact but cannot gain or lose fields without breaking readers.
type Packed struct{}

var (
	marshalerType   = reflect.TypeFor[Marshaler]()
	unmarshalerType = reflect.TypeFor[Unmarshaler]()
	packedType      = reflect.TypeFor[Packed]()
)

// EncodeValue writes v with enc. A top level pointer is dereferenced;
// nested pointers are written as options.
func EncodeValue(enc Encoder, v any) error {
	if m, ok := v.(Marshaler); ok {
		return m.MarshalWire(enc)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return enc.EncodeUnit()
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("%w: nil %s", ErrUnsupported, rv.Type())
		}
		rv = rv.Elem()
	}
	return encodeReflect(enc, rv)
}

// DecodeValue reads into the value v points to.
func DecodeValue(dec Decoder, v any) error {
	if u, ok := v.(Unmarshaler); ok {
		return u.UnmarshalWire(dec)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: got %T", ErrNotPointer, v)
	}
	return decodeReflect(dec, rv.Elem())
}

type fieldPlan struct {
	index int
	name  string
	key   uint32
}

type structPlan struct {
	packed     bool
	stringKeys bool
	fields     []fieldPlan
	byKey      map[uint32]int
	byName     map[string]int
	err        error
}

type planCache struct {
	mu    sync.RWMutex
	plans map[reflect.Type]*structPlan
}

var plans = &planCache{plans: make(map[reflect.Type]*structPlan)}

func (c *planCache) get(t reflect.Type) (*structPlan, error) {
	c.mu.RLock()
	if p, ok := c.plans[t]; ok {
		c.mu.RUnlock()
		return p, p.err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check
	if p, ok := c.plans[t]; ok {
		return p, p.err
	}
	p := buildPlan(t)
	c.plans[t] = p
	return p, p.err
}

// buildPlan collects exported fields in declaration order. Fields are keyed
// by number when every wire tag is numeric or absent (untagged fields take
// their position), and by name otherwise.
func buildPlan(t reflect.Type) *structPlan {
	p := &structPlan{}
	type raw struct {
		index int
		name  string
		tag   string
	}
	var fields []raw
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == packedType {
			p.packed = true
			continue
		}
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("wire")
		if name == "-" {
			continue
		}
		fields = append(fields, raw{index: i, name: sf.Name, tag: name})
	}
	for _, f := range fields {
		if f.tag == "" {
			continue
		}
		if _, err := strconv.ParseUint(f.tag, 10, 32); err != nil {
			p.stringKeys = true
			break
		}
	}

	if p.stringKeys {
		p.byName = make(map[string]int, len(fields))
	} else {
		p.byKey = make(map[uint32]int, len(fields))
	}
	for pos, f := range fields {
		fp := fieldPlan{index: f.index, name: f.name, key: uint32(pos)}
		if f.tag != "" {
			fp.name = f.tag
			if !p.stringKeys {
				k, _ := strconv.ParseUint(f.tag, 10, 32)
				fp.key = uint32(k)
			}
		}
		if p.stringKeys {
			if _, dup := p.byName[fp.name]; dup {
				p.err = fmt.Errorf("%w: %s has two fields named %q", ErrUnsupported, t, fp.name)
				return p
			}
			p.byName[fp.name] = len(p.fields)
		} else {
			if _, dup := p.byKey[fp.key]; dup {
				p.err = fmt.Errorf("%w: %s has two fields keyed %d", ErrUnsupported, t, fp.key)
				return p
			}
			p.byKey[fp.key] = len(p.fields)
		}
		p.fields = append(p.fields, fp)
	}
	return p
}

func (p *structPlan) encodeKey(enc Encoder, f fieldPlan) error {
	if p.stringKeys {
		return enc.EncodeString(f.name)
	}
	return enc.EncodeUint32(f.key)
}

func (p *structPlan) lookup(dec Decoder) (int, bool, error) {
	if p.stringKeys {
		name, err := dec.DecodeString()
		if err != nil {
			return 0, false, err
		}
		i, ok := p.byName[name]
		return i, ok, nil
	}
	k, err := dec.DecodeUint32()
	if err != nil {
		return 0, false, err
	}
	i, ok := p.byKey[k]
	return i, ok, nil
}

func encodeReflect(enc Encoder, v reflect.Value) error {
	t := v.Type()
	if v.Kind() != reflect.Pointer {
		if t.Implements(marshalerType) {
			return v.Interface().(Marshaler).MarshalWire(enc)
		}
		if reflect.PointerTo(t).Implements(marshalerType) {
			return addressable(v).Addr().Interface().(Marshaler).MarshalWire(enc)
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return enc.EncodeBool(v.Bool())
	case reflect.Uint8:
		return enc.EncodeUint8(uint8(v.Uint()))
	case reflect.Uint16:
		return enc.EncodeUint16(uint16(v.Uint()))
	case reflect.Uint32:
		return enc.EncodeUint32(uint32(v.Uint()))
	case reflect.Uint64, reflect.Uint:
		return enc.EncodeUint64(v.Uint())
	case reflect.Int8:
		return enc.EncodeInt8(int8(v.Int()))
	case reflect.Int16:
		return enc.EncodeInt16(int16(v.Int()))
	case reflect.Int32:
		return enc.EncodeInt32(int32(v.Int()))
	case reflect.Int64, reflect.Int:
		return enc.EncodeInt64(v.Int())
	case reflect.Float32:
		return enc.EncodeFloat32(float32(v.Float()))
	case reflect.Float64:
		return enc.EncodeFloat64(v.Float())
	case reflect.String:
		return enc.EncodeString(v.String())
	case reflect.Pointer:
		if v.IsNil() {
			return enc.EncodeNone()
		}
		inner, err := enc.EncodeSome()
		if err != nil {
			return err
		}
		return encodeReflect(inner, v.Elem())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return enc.EncodeBytes(v.Bytes())
		}
		return encodeElems(enc, v)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			buf := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(buf), v)
			return enc.EncodeArray(buf)
		}
		return encodeElems(enc, v)
	case reflect.Map:
		return encodeMap(enc, v)
	case reflect.Struct:
		return encodeStruct(enc, v)
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, t)
}

// addressable returns v itself, or a copy of it that can be addressed so
// that pointer receiver methods are reachable.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func encodeElems(enc Encoder, v reflect.Value) error {
	seq, err := enc.EncodeSequence(v.Len())
	if err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		e, err := seq.Next()
		if err != nil {
			return err
		}
		if err := encodeReflect(e, v.Index(i)); err != nil {
			return err
		}
	}
	return seq.End()
}

// sortedKeys orders map keys so that equal maps encode equally. Scalars
// sort by value; other key types sort by their default encoding.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	switch v.Type().Key().Kind() {
	case reflect.Bool:
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case b.Bool():
				return -1
			}
			return 1
		})
	case reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case reflect.Float32, reflect.Float64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) })
	default:
		sortByEncoding(keys)
	}
	return keys
}

// sortByEncoding leaves keys alone when one of them cannot be encoded; the
// map encoder reports that error itself.
func sortByEncoding(keys []reflect.Value) {
	type encoded struct {
		key reflect.Value
		b   []byte
	}
	all := make([]encoded, len(keys))
	for i, k := range keys {
		var buf bytes.Buffer
		if err := encodeReflect(Default.NewEncoder(&buf), k); err != nil {
			return
		}
		all[i] = encoded{key: k, b: buf.Bytes()}
	}
	slices.SortFunc(all, func(a, b encoded) int { return bytes.Compare(a.b, b.b) })
	for i := range all {
		keys[i] = all[i].key
	}
}

func encodeMap(enc Encoder, v reflect.Value) error {
	m, err := enc.EncodeMap(v.Len())
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(v) {
		ke, err := m.Key()
		if err != nil {
			return err
		}
		if err := encodeReflect(ke, k); err != nil {
			return err
		}
		ve, err := m.Value()
		if err != nil {
			return err
		}
		if err := encodeReflect(ve, v.MapIndex(k)); err != nil {
			return err
		}
	}
	return m.End()
}

func encodeStruct(enc Encoder, v reflect.Value) error {
	plan, err := plans.get(v.Type())
	if err != nil {
		return err
	}
	if plan.packed {
		pe, err := enc.EncodePacked()
		if err != nil {
			return err
		}
		for _, f := range plan.fields {
			fe, err := pe.Next()
			if err != nil {
				return err
			}
			if err := encodeReflect(fe, v.Field(f.index)); err != nil {
				return err
			}
		}
		return pe.End()
	}

	se, err := enc.EncodeStruct(len(plan.fields))
	if err != nil {
		return err
	}
	for _, f := range plan.fields {
		ke, err := se.Key()
		if err != nil {
			return err
		}
		if err := plan.encodeKey(ke, f); err != nil {
			return err
		}
		ve, err := se.Value()
		if err != nil {
			return err
		}
		if err := encodeReflect(ve, v.Field(f.index)); err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	return se.End()
}

// prealloc caps the capacity reserved up front for n decoded elements.
const prealloc = 1024

func decodeReflect(dec Decoder, v reflect.Value) error {
	t := v.Type()
	if v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(unmarshalerType) {
		return v.Addr().Interface().(Unmarshaler).UnmarshalWire(dec)
	}

	switch v.Kind() {
	case reflect.Bool:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Uint8:
		n, err := dec.DecodeUint8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint16:
		n, err := dec.DecodeUint16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint32:
		n, err := dec.DecodeUint32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
	case reflect.Uint64, reflect.Uint:
		n, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		if v.OverflowUint(n) {
			return fmt.Errorf("%w: %d into %s", ErrIntegerOverflow, n, t)
		}
		v.SetUint(n)
	case reflect.Int8:
		n, err := dec.DecodeInt8()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int16:
		n, err := dec.DecodeInt16()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int32:
		n, err := dec.DecodeInt32()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
	case reflect.Int64, reflect.Int:
		n, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		if v.OverflowInt(n) {
			return fmt.Errorf("%w: %d into %s", ErrIntegerOverflow, n, t)
		}
		v.SetInt(n)
	case reflect.Float32:
		f, err := dec.DecodeFloat32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(f))
	case reflect.Float64:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.String:
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v.SetString(s)
	case reflect.Pointer:
		inner, ok, err := dec.DecodeOption()
		if err != nil {
			return err
		}
		if !ok {
			v.SetZero()
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return decodeReflect(inner, v.Elem())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			b, err := dec.DecodeBytes()
			if err != nil {
				return err
			}
			if len(b) == 0 {
				v.SetZero()
				return nil
			}
			v.SetBytes(bytes.Clone(b))
			return nil
		}
		return decodeSlice(dec, v)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			buf := make([]byte, v.Len())
			if err := dec.DecodeArray(buf); err != nil {
				return err
			}
			reflect.Copy(v, reflect.ValueOf(buf))
			return nil
		}
		return decodeArray(dec, v)
	case reflect.Map:
		return decodeMap(dec, v)
	case reflect.Struct:
		return decodeStruct(dec, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
	return nil
}

func decodeSlice(dec Decoder, v reflect.Value) error {
	seq, err := dec.DecodeSequence()
	if err != nil {
		return err
	}
	n := seq.Len()
	if n == 0 {
		v.SetZero()
		return seq.End()
	}
	out := reflect.MakeSlice(v.Type(), 0, min(n, prealloc))
	elem := v.Type().Elem()
	for i := 0; i < n; i++ {
		ed, err := seq.Next()
		if err != nil {
			return err
		}
		e := reflect.New(elem).Elem()
		if err := decodeReflect(ed, e); err != nil {
			return err
		}
		out = reflect.Append(out, e)
	}
	v.Set(out)
	return seq.End()
}

func decodeArray(dec Decoder, v reflect.Value) error {
	seq, err := dec.DecodeSequence()
	if err != nil {
		return err
	}
	if seq.Len() != v.Len() {
		return fmt.Errorf("%w: array of %d elements, got %d", ErrLengthMismatch, v.Len(), seq.Len())
	}
	for i := 0; i < v.Len(); i++ {
		ed, err := seq.Next()
		if err != nil {
			return err
		}
		if err := decodeReflect(ed, v.Index(i)); err != nil {
			return err
		}
	}
	return seq.End()
}

func decodeMap(dec Decoder, v reflect.Value) error {
	m, err := dec.DecodeMap()
	if err != nil {
		return err
	}
	t := v.Type()
	if v.IsNil() {
		v.Set(reflect.MakeMapWithSize(t, min(m.Len(), prealloc)))
	}
	for i := 0; i < m.Len(); i++ {
		kd, err := m.Key()
		if err != nil {
			return err
		}
		k := reflect.New(t.Key()).Elem()
		if err := decodeReflect(kd, k); err != nil {
			return err
		}
		vd, err := m.Value()
		if err != nil {
			return err
		}
		e := reflect.New(t.Elem()).Elem()
		if err := decodeReflect(vd, e); err != nil {
			return err
		}
		v.SetMapIndex(k, e)
	}
	return m.End()
}

func decodeStruct(dec Decoder, v reflect.Value) error {
	plan, err := plans.get(v.Type())
	if err != nil {
		return err
	}
	if plan.packed {
		pd, err := dec.DecodePacked()
		if err != nil {
			return err
		}
		for _, f := range plan.fields {
			fd, err := pd.Next()
			if err != nil {
				return err
			}
			if err := decodeReflect(fd, v.Field(f.index)); err != nil {
				return err
			}
		}
		return pd.End()
	}

	sd, err := dec.DecodeStruct()
	if err != nil {
		return err
	}
	if dec.Packed() {
		for _, f := range plan.fields {
			fd, err := sd.Value()
			if err != nil {
				return err
			}
			if err := decodeReflect(fd, v.Field(f.index)); err != nil {
				return err
			}
		}
		return sd.End()
	}
	for i := 0; i < sd.Len(); i++ {
		kd, err := sd.Key()
		if err != nil {
			return err
		}
		idx, ok, err := plan.lookup(kd)
		if err != nil {
			return err
		}
		if !ok {
			if err := sd.SkipValue(); err != nil {
				return err
			}
			continue
		}
		vd, err := sd.Value()
		if err != nil {
			return err
		}
		f := plan.fields[idx]
		if err := decodeReflect(vd, v.Field(f.index)); err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	return sd.End()
}
