package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heraerp/hera/internal/dynamicdata/domain"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// inferFieldType picks a field type from the Go type of a decoded JSON value.
func inferFieldType(value any) string {
	switch value.(type) {
	case string:
		return domain.FieldTypeText
	case bool:
		return domain.FieldTypeBoolean
	case float32, float64, int, int32, int64, json.Number, decimal.Decimal:
		return domain.FieldTypeNumber
	case time.Time:
		return domain.FieldTypeDate
	case map[string]any, []any:
		return domain.FieldTypeJSON
	}
	return ""
}

// assignValue clears every typed column and sets the one matching fieldType.
func assignValue(field *domain.DynamicField, fieldType string, value any) error {
	field.FieldType = fieldType
	field.ValueText = nil
	field.ValueNumber = decimal.NullDecimal{}
	field.ValueBoolean = nil
	field.ValueDate = nil
	field.ValueJSON = nil

	if value == nil {
		return domain.ErrInvalidFieldValue
	}

	switch fieldType {
	case domain.FieldTypeText:
		text, ok := value.(string)
		if !ok {
			text = fmt.Sprint(value)
		}
		field.ValueText = &text
	case domain.FieldTypeNumber:
		number, err := toDecimal(value)
		if err != nil {
			return domain.ErrInvalidFieldValue
		}
		field.ValueNumber = decimal.NewNullDecimal(number)
	case domain.FieldTypeBoolean:
		flag, err := toBool(value)
		if err != nil {
			return domain.ErrInvalidFieldValue
		}
		field.ValueBoolean = &flag
	case domain.FieldTypeDate:
		date, err := toTime(value)
		if err != nil {
			return domain.ErrInvalidFieldValue
		}
		field.ValueDate = &date
	case domain.FieldTypeJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return domain.ErrInvalidFieldValue
		}
		field.ValueJSON = raw
	default:
		return domain.ErrInvalidFieldType
	}
	return nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported number %T", value)
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	return false, fmt.Errorf("unsupported boolean %T", value)
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		raw := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", raw)
	}
	return time.Time{}, fmt.Errorf("unsupported date %T", value)
}
