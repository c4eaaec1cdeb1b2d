package server

import (
	"reflect"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/heraerp/hera/internal/export"
)

var setupValidatorOnce sync.Once

// SetupValidator configures gin binding. JSON numbers decode as json.Number
// so snowflake ids inside free-form payloads keep every digit, binding errors
// report JSON field names, and the snowflake_id and export_format tags are
// registered.
func SetupValidator() {
	setupValidatorOnce.Do(func() {
		binding.EnableDecoderUseNumber = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("snowflake_id", func(fl validator.FieldLevel) bool {
			id, err := snowflake.ParseString(strings.TrimSpace(fl.Field().String()))
			return err == nil && id > 0
		})
		_ = v.RegisterValidation("export_format", func(fl validator.FieldLevel) bool {
			value := strings.ToLower(strings.TrimSpace(fl.Field().String()))
			for _, format := range export.Formats() {
				if value == format {
					return true
				}
			}
			return false
		})
	})
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "snowflake_id":
		return "must be a numeric id"
	case "export_format":
		return "must be one of " + strings.Join(export.Formats(), ", ")
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	default:
		return "invalid value"
	}
}
