package sanitize

import "regexp"

// RedactionToken replaces every redacted match.
const RedactionToken = "***"

// redactionPatterns are applied in order, each to the output of the previous.
var redactionPatterns = []*regexp.Regexp{
	// Resident identity card number with optional check letter. Runs
	// before the mobile pattern, which matches inside 19xx birth dates.
	regexp.MustCompile(`\d{17}[\dXx]`),
	// Mainland China mobile number.
	regexp.MustCompile(`1[3-9]\d{9}`),
	// E-mail address.
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
}

// Redact replaces phone numbers, national ID numbers and e-mail addresses
// in s with RedactionToken.
func Redact(s string) string {
	for _, re := range redactionPatterns {
		s = re.ReplaceAllLiteralString(s, RedactionToken)
	}
	return s
}

// ContainsPII reports whether s holds any value Redact would replace.
func ContainsPII(s string) bool {
	for _, re := range redactionPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
