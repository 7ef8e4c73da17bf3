package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidations registers custom validation rules
func RegisterCustomValidations(v *validator.Validate) {
	v.RegisterValidation("timeformat", validateTimeFormat)
	v.RegisterValidation("slotformat", validateSlotFormat)
	v.RegisterValidation("weekday", validateWeekday)
	v.RegisterValidation("dateformat", validateDateFormat)
}

// validateTimeFormat checks if string is valid HH:MM format
func validateTimeFormat(fl validator.FieldLevel) bool {
	_, err := NormalizeTime(fl.Field().String())
	return err == nil
}

// validateSlotFormat checks "Weekday HH:MM" with a Spanish day name.
func validateSlotFormat(fl validator.FieldLevel) bool {
	_, _, err := ParseSlotLabel(fl.Field().String())
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, ok := ParseWeekday(fl.Field().String())
	return ok
}

func validateDateFormat(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// TranslateValidationError renders binding errors as one message per field.
func TranslateValidationError(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var messages []string
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" es obligatorio")
		case "min":
			messages = append(messages, field+" debe ser al menos "+fe.Param())
		case "max":
			messages = append(messages, field+" debe ser como máximo "+fe.Param())
		case "numeric":
			messages = append(messages, field+" solo puede contener números")
		case "timeformat":
			messages = append(messages, field+" debe tener formato HH:MM (ej: 18:00)")
		case "slotformat":
			messages = append(messages, field+" debe tener formato 'Día HH:MM' (ej: Lunes 18:00)")
		case "weekday":
			messages = append(messages, field+" debe ser un día de la semana (ej: Martes)")
		case "dateformat":
			messages = append(messages, field+" debe tener formato AAAA-MM-DD")
		case "oneof":
			messages = append(messages, field+" debe ser uno de: "+fe.Param())
		case "gt":
			messages = append(messages, field+" debe ser mayor que "+fe.Param())
		default:
			messages = append(messages, field+" no es válido")
		}
	}
	return messages
}
