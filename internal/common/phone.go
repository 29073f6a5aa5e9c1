package common

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone is returned for numbers that are not Kenyan mobile numbers
var ErrInvalidPhone = errors.New("invalid phone number")

// Optional country code or trunk zero, then a 9-digit subscriber number
// starting with 7 or 1
var kenyanMobile = regexp.MustCompile(`^(?:\+?254|0)?([71]\d{8})$`)

// NormalizePhone rewrites 07XXXXXXXX, +2547XXXXXXXX, 2547XXXXXXXX or
// 7XXXXXXXX (and the 01 equivalents) into 254XXXXXXXXX
func NormalizePhone(raw string) (string, error) {
	match := kenyanMobile.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return "", ErrInvalidPhone
	}
	return "254" + match[1], nil
}
