package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone reduces user input to the digits-only form the
// messaging gateway expects: "+55 11 91234-5678" => "5511912345678".
func NormalizePhone(raw string) string {
	return nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
}
