package publish

import "unicode/utf8"

// OtherBucket is the search shard for names that do not start with an
// ASCII letter.
const OtherBucket = "other"

// Bucket returns the search shard of name: its first letter lowercased when
// that is an ASCII letter, otherwise OtherBucket.
func Bucket(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	switch {
	case r >= 'a' && r <= 'z':
		return string(r)
	case r >= 'A' && r <= 'Z':
		return string(r + 'a' - 'A')
	}
	return OtherBucket
}
