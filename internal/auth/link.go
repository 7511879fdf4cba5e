package auth

import (
	"net/url"
	"strings"
)

// VerifyLink builds the URL a user opens to confirm their address.
func VerifyLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(token)
}
