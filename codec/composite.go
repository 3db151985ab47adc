package codec

// Seq is a homogeneous sequence (array/list), tag 's' (shared with
// String; see tag.go). The body is an element *count*, not a byte count,
// followed by that many recursively encoded elements.
type Seq struct {
	Elements []Value
}

func NewSeq(elems ...Value) Seq { return Seq{Elements: elems} }

func (v Seq) sealed() {}

func (v Seq) Size() int {
	n := 1 + 1 + len(encodeLen(len(v.Elements))) + 1 // tag + '[' + length + ']'
	for _, e := range v.Elements {
		n += e.Size()
	}
	return n
}

func (v Seq) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, v.Size())
	out = append(out, byte(TagSeq), delimSeqOpen)
	out = append(out, encodeLen(len(v.Elements))...)
	for _, e := range v.Elements {
		b, err := e.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	out = append(out, delimSeqClose)
	return out, nil
}

// DecodeSeq decodes a Seq, using elem to decode each element in turn.
func DecodeSeq(data []byte, elem Decoder) (Seq, int, error) {
	off := 0
	if len(data) < 2 {
		return Seq{}, 0, errShort("seq", off)
	}
	if Tag(data[0]) != TagSeq {
		return Seq{}, 0, errTag("seq", off, data[0])
	}
	if data[1] != delimSeqOpen {
		return Seq{}, 0, errDelim("seq", 1, delimSeqOpen, data[1])
	}
	off = 2
	n, consumed, err := decodeLen(data[off:], "seq length", off)
	if err != nil {
		return Seq{}, 0, err
	}
	off += consumed
	elems := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		if off >= len(data) {
			return Seq{}, 0, errShort("seq element", off)
		}
		val, used, err := elem(data[off:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += off
			}
			return Seq{}, 0, err
		}
		elems = append(elems, val)
		off += used
	}
	if off >= len(data) || data[off] != delimSeqClose {
		got := byte(0)
		if off < len(data) {
			got = data[off]
		}
		return Seq{}, 0, errDelim("seq", off, delimSeqClose, got)
	}
	off++
	return Seq{Elements: elems}, off, nil
}

// Tuple is a fixed, possibly heterogeneous arity sequence, tag 't'.
type Tuple struct {
	Elements []Value
}

func NewTuple(elems ...Value) Tuple { return Tuple{Elements: elems} }

func (v Tuple) sealed() {}

func (v Tuple) Size() int {
	n := 1 + 1 + len(encodeLen(len(v.Elements))) + 1
	for _, e := range v.Elements {
		n += e.Size()
	}
	return n
}

func (v Tuple) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, v.Size())
	out = append(out, byte(TagTuple), delimTupleOpen)
	out = append(out, encodeLen(len(v.Elements))...)
	for _, e := range v.Elements {
		b, err := e.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	out = append(out, delimTupleClose)
	return out, nil
}

// DecodeTuple decodes a Tuple given one decoder per positional slot.
func DecodeTuple(data []byte, elems []Decoder) (Tuple, int, error) {
	off := 0
	if len(data) < 2 {
		return Tuple{}, 0, errShort("tuple", off)
	}
	if Tag(data[0]) != TagTuple {
		return Tuple{}, 0, errTag("tuple", off, data[0])
	}
	if data[1] != delimTupleOpen {
		return Tuple{}, 0, errDelim("tuple", 1, delimTupleOpen, data[1])
	}
	off = 2
	n, consumed, err := decodeLen(data[off:], "tuple length", off)
	if err != nil {
		return Tuple{}, 0, err
	}
	off += consumed
	if n != len(elems) {
		return Tuple{}, 0, &DecodeError{Offset: off, Expect: "tuple", Reason: "arity mismatch"}
	}
	values := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		if off >= len(data) {
			return Tuple{}, 0, errShort("tuple element", off)
		}
		val, used, err := elems[i](data[off:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += off
			}
			return Tuple{}, 0, err
		}
		values = append(values, val)
		off += used
	}
	if off >= len(data) || data[off] != delimTupleClose {
		got := byte(0)
		if off < len(data) {
			got = data[off]
		}
		return Tuple{}, 0, errDelim("tuple", off, delimTupleClose, got)
	}
	off++
	return Tuple{Elements: values}, off, nil
}

// Field is one struct field or map entry: an encoded key (usually a
// String for struct field names, but any Value for a general map) paired
// with its value.
type Field struct {
	Key   Value
	Value Value
}

// Struct is the tag-'m' shape, doubling as both a named struct and a
// generic map: "{" for each field "<" key "-" value ">" "}".
type Struct struct {
	Fields []Field
}

func NewStruct(fields ...Field) Struct { return Struct{Fields: fields} }

func StringField(key string, val Value) Field { return Field{Key: String(key), Value: val} }

func (v Struct) sealed() {}

func (v Struct) Size() int {
	n := 3 // tag + '{' + '}'
	for _, f := range v.Fields {
		n += 3 + f.Key.Size() + f.Value.Size() // '<' '-' '>'
	}
	return n
}

func (v Struct) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, v.Size())
	out = append(out, byte(TagStruct), delimMapOpen)
	for _, f := range v.Fields {
		kb, err := f.Key.MarshalBinary()
		if err != nil {
			return nil, err
		}
		vb, err := f.Value.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, delimEntryOpen)
		out = append(out, kb...)
		out = append(out, delimEntryMid)
		out = append(out, vb...)
		out = append(out, delimEntryClose)
	}
	out = append(out, delimMapClose)
	return out, nil
}

// FieldSpec describes how to decode one struct field or map entry by
// position: callers that know the field order/types (struct decoding)
// pass one FieldSpec per field; a generic map decode may instead loop
// until it hits '}' using a single key/value decoder pair via
// DecodeMap.
type FieldSpec struct {
	Key   Decoder
	Value Decoder
}

// DecodeStruct decodes a Struct with a known, ordered set of fields.
func DecodeStruct(data []byte, specs []FieldSpec) (Struct, int, error) {
	off := 0
	if len(data) < 2 {
		return Struct{}, 0, errShort("struct", off)
	}
	if Tag(data[0]) != TagStruct {
		return Struct{}, 0, errTag("struct", off, data[0])
	}
	if data[1] != delimMapOpen {
		return Struct{}, 0, errDelim("struct", 1, delimMapOpen, data[1])
	}
	off = 2
	fields := make([]Field, 0, len(specs))
	for _, spec := range specs {
		if off >= len(data) || data[off] != delimEntryOpen {
			got := byte(0)
			if off < len(data) {
				got = data[off]
			}
			return Struct{}, 0, errDelim("struct entry", off, delimEntryOpen, got)
		}
		off++
		key, used, err := spec.Key(data[off:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += off
			}
			return Struct{}, 0, err
		}
		off += used
		if off >= len(data) || data[off] != delimEntryMid {
			got := byte(0)
			if off < len(data) {
				got = data[off]
			}
			return Struct{}, 0, errDelim("struct entry", off, delimEntryMid, got)
		}
		off++
		val, used, err := spec.Value(data[off:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += off
			}
			return Struct{}, 0, err
		}
		off += used
		if off >= len(data) || data[off] != delimEntryClose {
			got := byte(0)
			if off < len(data) {
				got = data[off]
			}
			return Struct{}, 0, errDelim("struct entry", off, delimEntryClose, got)
		}
		off++
		fields = append(fields, Field{Key: key, Value: val})
	}
	if off >= len(data) || data[off] != delimMapClose {
		got := byte(0)
		if off < len(data) {
			got = data[off]
		}
		return Struct{}, 0, errDelim("struct", off, delimMapClose, got)
	}
	off++
	return Struct{Fields: fields}, off, nil
}

// DecodeMap decodes a Struct of unknown length as a generic map: key and
// value decoders are reused for every entry until '}' terminates it.
func DecodeMap(data []byte, key, value Decoder) (Struct, int, error) {
	off := 0
	if len(data) < 2 {
		return Struct{}, 0, errShort("map", off)
	}
	if Tag(data[0]) != TagStruct {
		return Struct{}, 0, errTag("map", off, data[0])
	}
	if data[1] != delimMapOpen {
		return Struct{}, 0, errDelim("map", 1, delimMapOpen, data[1])
	}
	off = 2
	var fields []Field
	for off < len(data) && data[off] == delimEntryOpen {
		off++
		k, used, err := key(data[off:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += off
			}
			return Struct{}, 0, err
		}
		off += used
		if off >= len(data) || data[off] != delimEntryMid {
			got := byte(0)
			if off < len(data) {
				got = data[off]
			}
			return Struct{}, 0, errDelim("map entry", off, delimEntryMid, got)
		}
		off++
		v, used, err := value(data[off:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += off
			}
			return Struct{}, 0, err
		}
		off += used
		if off >= len(data) || data[off] != delimEntryClose {
			got := byte(0)
			if off < len(data) {
				got = data[off]
			}
			return Struct{}, 0, errDelim("map entry", off, delimEntryClose, got)
		}
		off++
		fields = append(fields, Field{Key: k, Value: v})
	}
	if off >= len(data) || data[off] != delimMapClose {
		got := byte(0)
		if off < len(data) {
			got = data[off]
		}
		return Struct{}, 0, errDelim("map", off, delimMapClose, got)
	}
	off++
	return Struct{Fields: fields}, off, nil
}

// Enum is a tagged union: a variant name followed by its payload, or no
// trailing bytes at all for a unit variant. The encoded variant name is
// the method-signature path-prefix the dispatcher routes on.
type Enum struct {
	Variant string
	// Payload is nil for a unit variant.
	Payload Value
}

func NewEnum(variant string, payload Value) Enum {
	return Enum{Variant: variant, Payload: payload}
}

func (v Enum) sealed() {}

func (v Enum) Size() int {
	n := 1 + String(v.Variant).Size()
	if v.Payload != nil {
		n += v.Payload.Size()
	}
	return n
}

func (v Enum) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, v.Size())
	out = append(out, byte(TagEnum))
	nameBytes, err := String(v.Variant).MarshalBinary()
	if err != nil {
		return nil, err
	}
	out = append(out, nameBytes...)
	if v.Payload != nil {
		pb, err := v.Payload.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, pb...)
	}
	return out, nil
}

// DecodeEnumName reads just the tag and variant name, returning the
// variant and how many bytes were consumed, so the caller can look up the
// right payload decoder (e.g. by registry prefix match) before decoding
// the rest.
func DecodeEnumName(data []byte) (string, int, error) {
	if len(data) < 1 {
		return "", 0, errShort("enum", 0)
	}
	if Tag(data[0]) != TagEnum {
		return "", 0, errTag("enum", 0, data[0])
	}
	name, used, err := DecodeString(data[1:])
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Offset++
		}
		return "", 0, err
	}
	return string(name), 1 + used, nil
}

// DecodeEnum decodes a full Enum, given the variant-name consumed by a
// prior DecodeEnumName call (nameLen bytes) and a payload decoder. Pass a
// nil payload decoder for a unit variant.
func DecodeEnum(data []byte, nameLen int, payload Decoder) (Enum, int, error) {
	variant, n, err := DecodeEnumName(data)
	if err != nil {
		return Enum{}, 0, err
	}
	off := n
	if payload == nil {
		return Enum{Variant: variant}, off, nil
	}
	val, used, err := payload(data[off:])
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Offset += off
		}
		return Enum{}, 0, err
	}
	off += used
	return Enum{Variant: variant, Payload: val}, off, nil
}

// Option is present-or-absent, tag 'o'.
type Option struct {
	Value Value // nil when absent
}

func Some(v Value) Option { return Option{Value: v} }
func None() Option         { return Option{} }

func (v Option) sealed() {}

func (v Option) Size() int {
	if v.Value == nil {
		return 2
	}
	return 2 + v.Value.Size()
}

func (v Option) MarshalBinary() ([]byte, error) {
	if v.Value == nil {
		return []byte{byte(TagOption), optionNone}, nil
	}
	vb, err := v.Value.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 2+len(vb))
	out = append(out, byte(TagOption), optionSome)
	out = append(out, vb...)
	return out, nil
}

// DecodeOption decodes an Option using inner to decode a present value.
func DecodeOption(data []byte, inner Decoder) (Option, int, error) {
	if len(data) < 2 {
		return Option{}, 0, errShort("option", 0)
	}
	if Tag(data[0]) != TagOption {
		return Option{}, 0, errTag("option", 0, data[0])
	}
	switch data[1] {
	case optionNone:
		return Option{}, 2, nil
	case optionSome:
		val, used, err := inner(data[2:])
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Offset += 2
			}
			return Option{}, 0, err
		}
		return Option{Value: val}, 2 + used, nil
	default:
		return Option{}, 0, &DecodeError{Offset: 1, Expect: "option", Reason: "presence marker must be 0x00 or 0xFF"}
	}
}
