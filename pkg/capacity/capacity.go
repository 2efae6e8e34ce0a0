package capacity

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Category is the width family of an integer column type.
type Category int

const (
	Unknown Category = iota
	Tiny             // 8-bit
	Small            // 16-bit
	Medium           // 24-bit
	Int              // 32-bit
	Big              // 64-bit
)

func (c Category) String() string {
	switch c {
	case Tiny:
		return "tinyint"
	case Small:
		return "smallint"
	case Medium:
		return "mediumint"
	case Int:
		return "int"
	case Big:
		return "bigint"
	default:
		return "unknown"
	}
}

// Bits returns the storage width of the category, 0 for Unknown.
func (c Category) Bits() uint {
	switch c {
	case Tiny:
		return 8
	case Small:
		return 16
	case Medium:
		return 24
	case Int:
		return 32
	case Big:
		return 64
	default:
		return 0
	}
}

// typeAliases maps declared type names (MySQL DATA_TYPE and the PostgreSQL
// spellings) to their category.
var typeAliases = map[string]Category{
	"tinyint":     Tiny,
	"smallint":    Small,
	"int2":        Small,
	"smallserial": Small,
	"mediumint":   Medium,
	"int":         Int,
	"integer":     Int,
	"int4":        Int,
	"serial":      Int,
	"bigint":      Big,
	"int8":        Big,
	"bigserial":   Big,
}

// ParseCategory maps a declared data type to its Category. The lookup is
// case-insensitive and ignores a display width suffix such as "int(11)".
func ParseCategory(dataType string) Category {
	name := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if c, ok := typeAliases[name]; ok {
		return c
	}
	return Unknown
}

// IsUnsigned reports whether a full column type (MySQL COLUMN_TYPE, e.g.
// "int(10) unsigned zerofill") carries the unsigned attribute.
func IsUnsigned(columnType string) bool {
	return strings.Contains(strings.ToLower(columnType), "unsigned")
}

type key struct {
	category Category
	unsigned bool
}

var ceilings = map[key]*big.Int{
	{Tiny, false}:   big.NewInt(127),
	{Tiny, true}:    big.NewInt(255),
	{Small, false}:  big.NewInt(32767),
	{Small, true}:   big.NewInt(65535),
	{Medium, false}: big.NewInt(8388607),
	{Medium, true}:  big.NewInt(16777215),
	{Int, false}:    big.NewInt(2147483647),
	{Int, true}:     big.NewInt(4294967295),
	{Big, false}:    maxOfBits(63),
	{Big, true}:     maxOfBits(64),
}

// maxOfBits returns 2^bits - 1.
func maxOfBits(bits uint) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), bits)
	return v.Sub(v, big.NewInt(1))
}

// Fallback is the ceiling used for unrecognized types: the signed 32-bit max.
var Fallback = ceilings[key{Int, false}]

// UnknownTypeWarning is returned alongside the fallback ceiling when a type is
// not recognized. It is not fatal.
type UnknownTypeWarning struct {
	DataType string
	Unsigned bool
}

func (w *UnknownTypeWarning) Error() string {
	return fmt.Sprintf("unknown integer type %q (unsigned=%t), falling back to ceiling %s", w.DataType, w.Unsigned, Fallback)
}

// Resolve returns the maximum value representable by the category and
// signedness pair. The returned value is a fresh copy owned by the caller.
// For Unknown the 32-bit signed ceiling is returned with an *UnknownTypeWarning.
func Resolve(category Category, unsigned bool) (*big.Int, error) {
	if c, ok := ceilings[key{category, unsigned}]; ok {
		return new(big.Int).Set(c), nil
	}
	return new(big.Int).Set(Fallback), &UnknownTypeWarning{DataType: category.String(), Unsigned: unsigned}
}

// ResolveType is Resolve for a declared type name. The warning names the
// original type so operators can find the column.
func ResolveType(dataType string, unsigned bool) (Category, *big.Int, error) {
	category := ParseCategory(dataType)
	ceiling, err := Resolve(category, unsigned)
	var warning *UnknownTypeWarning
	if errors.As(err, &warning) {
		warning.DataType = dataType
	}
	return category, ceiling, err
}
