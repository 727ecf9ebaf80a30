package constants

import (
	"strings"
)

// DataType classifies a discovered or selected field.
type DataType string

const (
	TypeText     DataType = "text"
	TypeNumber   DataType = "number"
	TypeDate     DataType = "date"
	TypeBoolean  DataType = "boolean"
	TypeCurrency DataType = "currency"
	TypeEmail    DataType = "email"
	TypePhone    DataType = "phone"
	TypeAddress  DataType = "address"
	TypeList     DataType = "list"
)

var allDataTypes = []DataType{
	TypeText,
	TypeNumber,
	TypeDate,
	TypeBoolean,
	TypeCurrency,
	TypeEmail,
	TypePhone,
	TypeAddress,
	TypeList,
}

// CanonicalizeType maps a free-form type label from the extraction service
// onto a known DataType. Unknown labels fall back to text.
func CanonicalizeType(input string) (DataType, bool) {
	if input == "" {
		return TypeText, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DataType{
		"string":   TypeText,
		"str":      TypeText,
		"int":      TypeNumber,
		"integer":  TypeNumber,
		"float":    TypeNumber,
		"decimal":  TypeNumber,
		"money":    TypeCurrency,
		"amount":   TypeCurrency,
		"datetime": TypeDate,
		"bool":     TypeBoolean,
		"checkbox": TypeBoolean,
		"array":    TypeList,
		"table":    TypeList,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}
	for _, dt := range allDataTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return TypeText, false
}
