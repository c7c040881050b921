package crypto

import (
	"strconv"
	"unicode/utf16"
)

// PasswordSalt - фиксированная соль, добавляется к паролю перед хешированием.
// Менять нельзя: сохраненные хеши перестанут сходиться.
const PasswordSalt = "salt_xerox_2025"

// Digest computes the legacy keyed digest used for password comparison and
// cache-busting identifiers. It is NOT a cryptographic hash: h = 31*h + c
// over the UTF-16 code units of text, with int32 wraparound, rendered as a
// base-10 string. Deterministic, and the empty string digests to "0".
func Digest(text string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = 31*h + int32(c)
	}
	return strconv.FormatInt(int64(h), 10)
}

// HashPassword возвращает digest от пароля с фиксированной солью.
// Это значение хранится вместо пароля в AdminCredential.
func HashPassword(password string) string {
	return Digest(password + PasswordSalt)
}
