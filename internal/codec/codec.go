// Package codec encodes job payloads for transport through text-oriented
// message channels. The encoding is URL-safe base64, so encoded payloads
// can also be embedded in URLs and JSON without escaping.
package codec

import (
	"encoding/base64"
	"fmt"
)

// DecodeError reports a malformed payload. It is a business-level
// outcome: the worker settles the job as FAILURE instead of treating it
// as an infrastructure fault.
type DecodeError struct {
	Reason error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload: %v", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Reason
}

// Encode converts arbitrary binary content into a transport-safe string.
func Encode(data []byte) string {
	return base64.URLEncoding.EncodeToString(data)
}

// Decode is the exact inverse of Encode. Malformed input yields a
// *DecodeError, never a panic.
func Decode(payload string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Reason: err}
	}
	return data, nil
}
