package settings

import "fmt"

// TypeID is a stable index into a TypeRegistry, assigned at registration.
type TypeID int

// Built-in types occupy fixed low indices.
const (
	TypeString TypeID = iota
	TypeFloat
	TypeInt
)

// Codec converts between a setting's backing bytes and its wire text.
type Codec interface {
	// Format renders blob as text.
	Format(blob []byte) (string, error)
	// Parse stores the value described by text into blob.
	Parse(blob []byte, text string) error
}

// TypeFormatter is implemented by codecs that publish type metadata
// alongside the value, e.g. the allowed names of an enum.
type TypeFormatter interface {
	FormatType() string
}

// TypeRegistry is an append-only list of codecs addressed by TypeID.
type TypeRegistry struct {
	types []Codec
}

// NewTypeRegistry returns a registry holding the string, float and int codecs.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: []Codec{stringCodec{}, floatCodec{}, intCodec{}}}
}

// RegisterType appends c and returns its index.
func (r *TypeRegistry) RegisterType(c Codec) TypeID {
	r.types = append(r.types, c)
	return TypeID(len(r.types) - 1)
}

func (r *TypeRegistry) Resolve(id TypeID) (Codec, error) {
	if id < 0 || int(id) >= len(r.types) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrUnknownType, id, len(r.types))
	}
	return r.types[id], nil
}

func (r *TypeRegistry) Len() int {
	return len(r.types)
}

// Describe names a type for diagnostics: the built-in name, the codec's
// metadata when it has any, or its index.
func (r *TypeRegistry) Describe(id TypeID) string {
	switch id {
	case TypeString:
		return "string"
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	}
	c, err := r.Resolve(id)
	if err != nil {
		return "unknown"
	}
	if tf, ok := c.(TypeFormatter); ok {
		return tf.FormatType()
	}
	return fmt.Sprintf("type.%d", id)
}
