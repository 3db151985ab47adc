package codec

// Decode dispatches on the leading tag byte for the shapes that need no
// external schema to parse unambiguously: bool, int, float, and bytes.
// String, Seq, Tuple, Struct, Enum, and Option all require a caller-
// supplied decoder for at least one nested position (or, for the
// string/seq pair, disambiguation the tag alone cannot provide) and are
// decoded with their own Decode* functions instead.
func Decode(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return nil, 0, errShort("value", 0)
	}
	switch Tag(data[0]) {
	case TagBool:
		v, n, err := DecodeBool(data)
		return v, n, err
	case TagInt:
		v, n, err := DecodeInt(data)
		return v, n, err
	case TagFloat:
		v, n, err := DecodeFloat(data)
		return v, n, err
	case TagBytes:
		v, n, err := DecodeBytes(data)
		return v, n, err
	default:
		return nil, 0, &DecodeError{
			Offset: 0,
			Expect: "self-describing value",
			Reason: "tag requires a schema-aware Decode* call (string/seq/tuple/struct/enum/option)",
		}
	}
}
