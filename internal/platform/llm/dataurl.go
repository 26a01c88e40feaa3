package llm

import "encoding/base64"

// DataURL encodes data as an RFC 2397 base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
