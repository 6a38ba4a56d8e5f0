package utils

// ConstantTimeEquals compares two strings without short-circuiting on the
// first mismatched byte. Only a length mismatch returns early; length is
// safe to leak for the fixed-size tokens compared here.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
