package codec

// Tag is the single-byte ASCII discriminator written ahead of every value
// except char, which has no leading tag and is only ever decoded in a
// position whose shape is already known to the caller (a struct field, a
// tuple slot, an enum payload).
type Tag byte

const (
	TagBool   Tag = 'c'
	TagInt    Tag = 'n'
	TagFloat  Tag = 'f'
	TagBytes  Tag = 'b'
	TagString Tag = 's'
	// TagSeq is identical to TagString on the wire: the spec's tag table
	// assigns both shapes the byte 's'. They differ only in how the body
	// is interpreted (raw UTF-8 bytes vs. a count of recursively encoded
	// elements), so there is no tag-only way to tell them apart blind.
	// Decode* entry points for the two shapes are separate functions;
	// see codec.go.
	TagSeq    Tag = 's'
	TagTuple  Tag = 't'
	TagStruct Tag = 'm'
	TagEnum   Tag = 'e'
	TagOption Tag = 'o'
)

// Structural delimiters, literal ASCII bytes required by the parser.
const (
	delimSeqOpen    = '['
	delimSeqClose   = ']'
	delimTupleOpen  = '('
	delimTupleClose = ')'
	delimMapOpen    = '{'
	delimMapClose   = '}'
	delimEntryOpen  = '<'
	delimEntryMid   = '-'
	delimEntryClose = '>'
)

const (
	boolTrue  byte = 0xFF
	boolFalse byte = 0x00

	optionSome byte = 0xFF
	optionNone byte = 0x00
)
