package vault

import "crypto/subtle"

// ConstantTimeEqual compares two secrets without leaking timing beyond their
// lengths. Used wherever an inbound value is checked against a stored
// verification token.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
