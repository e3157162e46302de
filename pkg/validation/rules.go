package validation

import (
	"regexp"
	"time"

	"service-dispatch/pkg/utils"

	"github.com/go-playground/validator/v10"
)

var clockRegexp = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

// registerRules registers the custom tags used in dto struct tags.
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("phone", isPhoneNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("clock", isClock); err != nil {
		return err
	}
	if err := v.RegisterValidation("isodate", isISODate); err != nil {
		return err
	}
	return nil
}

// isPhoneNumber accepts anything that normalizes to 7..15 digits.
func isPhoneNumber(fl validator.FieldLevel) bool {
	n := len(utils.NormalizePhone(fl.Field().String()))
	return n >= 7 && n <= 15
}

// isClock accepts "HH:MM" and "HH:MM:SS".
func isClock(fl validator.FieldLevel) bool {
	return clockRegexp.MatchString(fl.Field().String())
}

// isISODate accepts a YYYY-MM-DD calendar date.
func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(utils.DateLayout, fl.Field().String())
	return err == nil
}
