package domain

// FieldType is the parsing hint for a catalog field's expected reply.
type FieldType string

const (
	TypeBoolean  FieldType = "boolean"
	TypeInteger  FieldType = "integer"
	TypeNumber   FieldType = "number"
	TypeEnum     FieldType = "enum"
	TypeFreeText FieldType = "text"
)

// Field describes one question in a catalog. ID is stable and doubles as
// the answer key and the section-prefix key.
type Field struct {
	ID      string
	Prompt  string
	Type    FieldType
	Allowed []string // closed vocabulary, TypeEnum only
}
