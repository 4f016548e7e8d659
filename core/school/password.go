package school

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const tempPasswordLen = 10

// GenerateTempPassword returns a random one-time credential for a newly
// provisioned identity.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	pwd := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	return strings.ToLower(pwd[:tempPasswordLen]), nil
}
