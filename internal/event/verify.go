package event

import (
	"crypto/subtle"
	"net/http"
)

// Verify reports whether the header carries exactly the expected secret.
// A missing header reads as "", so an empty expected secret accepts every
// request; the server refuses to start in that configuration.
func Verify(headers http.Header, name, expected string) bool {
	got := headers.Get(name)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
