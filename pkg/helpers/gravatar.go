package helpers

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// GravatarURL returns the identicon avatar for email.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=250&d=identicon"
}

// NameFromEmail returns the local part of an address.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
