package universal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/heraerp/hera/internal/guardrail"
	"github.com/shopspring/decimal"
)

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// decode copies payload into out using the mapstructure tags of the request
// types. Unknown keys are ignored so payloads may carry extra columns.
func decode(payload guardrail.Payload, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numberToStringHook,
			decimalHook,
			timeHook,
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]any(payload)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// numberToStringHook formats numbers bound for string fields. Ids keep every
// digit only as json.Number; a float64 is exact up to 2^53.
func numberToStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch v := data.(type) {
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return data, nil
}

func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", data)
}

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		raw := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed.UTC(), nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as a date", raw)
	}
	return nil, fmt.Errorf("cannot convert %T to time", data)
}

func stringValue(payload guardrail.Payload, key string) string {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return ""
	}
	out, err := numberToStringHook(nil, reflect.TypeOf(""), raw)
	if err != nil {
		return ""
	}
	if s, ok := out.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(out))
}
