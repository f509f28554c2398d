// Package tds defines the boundary consumed from the TDS transport
// collaborator: data type tags, column metadata, the per-request contract,
// and the connection handle interface. Wire framing and socket I/O live
// behind this boundary, not in this module.
package tds

// Type identifies a TDS data type tag.
type Type int

const (
	// TypeNone is the zero value and never a valid parameter type.
	TypeNone Type = iota

	TypeBit
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeVarChar
	TypeNVarChar
	TypeUniqueIdentifier
	TypeVarBinary
	TypeDateTimeOffset
)

var typeNames = map[Type]string{
	TypeNone:             "None",
	TypeBit:              "Bit",
	TypeTinyInt:          "TinyInt",
	TypeSmallInt:         "SmallInt",
	TypeInt:              "Int",
	TypeBigInt:           "BigInt",
	TypeFloat:            "Float",
	TypeVarChar:          "VarChar",
	TypeNVarChar:         "NVarChar",
	TypeUniqueIdentifier: "UniqueIdentifier",
	TypeVarBinary:        "VarBinary",
	TypeDateTimeOffset:   "DateTimeOffset",
}

// String returns the type tag name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Column describes one column of result-set metadata.
type Column struct {
	Name     string
	Type     Type
	Length   int
	Nullable bool
}
