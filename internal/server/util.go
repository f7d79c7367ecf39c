package server

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// newJoinCode builds a human-shareable 6-char code: three letters then
// three digits, ambiguous glyphs excluded.
func newJoinCode() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAA222"
	}
	for i := 0; i < 3; i++ {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	for i := 3; i < 6; i++ {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf)
}

// newMemberToken mints the opaque token a guest presents when
// connecting.
func newMemberToken() string {
	return uuid.NewString()
}
