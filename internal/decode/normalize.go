package decode

import (
	"encoding/base64"
	"regexp"
)

// Clients submit captured photos as data URIs ("data:image/png;base64,...")
// or as bare base64. The header carries no information the decoder needs,
// so normalization just strips it. Matching is case-sensitive on the
// "image/" token like the browsers that produce these strings.
var dataURIHeader = regexp.MustCompile(`^data:image/[A-Za-z0-9.+-]+;base64,`)

// StripHeader removes a data-URI image header if present. Input without
// a header is already clean; stripping is idempotent.
func StripHeader(payload string) string {
	return dataURIHeader.ReplaceAllString(payload, "")
}

// Normalize strips the transport header and decodes the base64 body.
// A base64 error here is reported by the decode stage as a processing
// failure; normalization itself has no failure mode of its own.
func Normalize(payload string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(StripHeader(payload))
}
