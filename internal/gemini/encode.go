package gemini

import (
	"encoding/base64"
	"strings"
)

// DefaultChunkSize is roughly 8 KiB. Chunk size trades call overhead against
// peak allocation; it does not affect the encoded output.
const DefaultChunkSize = 8192

// EncodeChunked base64-encodes data in bounded chunks concatenated in order,
// so peak allocation stays independent of payload size. The chunk size is
// rounded down to a multiple of 3, which keeps padding out of the middle of
// the stream: the concatenation decodes back to the exact input bytes.
func EncodeChunked(data []byte, chunkSize int) string {
	if chunkSize < 3 {
		chunkSize = 3
	}
	chunkSize -= chunkSize % 3

	var b strings.Builder
	b.Grow(base64.StdEncoding.EncodedLen(len(data)))
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		b.WriteString(base64.StdEncoding.EncodeToString(data[off:end]))
	}
	return b.String()
}
