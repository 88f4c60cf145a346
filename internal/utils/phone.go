package utils

import "regexp"

// Mainland phone numbers: 11 digits, starting 1, second digit 3-9.
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidPhone reports whether the phone matches the accepted format.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
