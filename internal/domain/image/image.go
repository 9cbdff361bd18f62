// Package image generates the synthetic image artifact served by the responder.
package image

import (
	"bytes"
	"strconv"
)

// Size is the exact length in bytes of every image body.
const Size = 512

// Pattern is the byte sequence the image body repeats.
const Pattern = "secret data\n"

// Payload builds the image body: Pattern repeated end-to-end and truncated
// to Size. Each call returns a fresh slice.
func Payload() []byte {
	body := bytes.Repeat([]byte(Pattern), 1+Size/len(Pattern))
	return body[:Size:Size]
}

// ContentLength returns Size formatted for a Content-Length header.
func ContentLength() string {
	return strconv.Itoa(Size)
}
