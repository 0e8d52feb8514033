package chunker

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxSymbolBytes is a conservative estimate of what one optical
	// symbol can carry (version 40-L).
	DefaultMaxSymbolBytes = 2953
	// DefaultSafetyMargin leaves room for the wire framing overhead.
	DefaultSafetyMargin = 0.8
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sanitize decodes raw file bytes into text. A UTF-8 byte-order-mark is
// stripped, invalid byte sequences are replaced with U+FFFD. Content is never
// rejected.
func Sanitize(raw []byte) string {
	if len(raw) >= len(utf8BOM) && raw[0] == utf8BOM[0] && raw[1] == utf8BOM[1] && raw[2] == utf8BOM[2] {
		raw = raw[len(utf8BOM):]
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

// CapacityFor derives the chunk byte cap from the transport's maximum payload
// size and a safety margin.
func CapacityFor(maxSymbolBytes int, margin float64) int {
	if maxSymbolBytes <= 0 {
		maxSymbolBytes = DefaultMaxSymbolBytes
	}
	if margin <= 0 || margin > 1 {
		margin = DefaultSafetyMargin
	}
	return int(float64(maxSymbolBytes) * margin)
}

// Split partitions content into chunks of at most maxBytes, breaking only at
// line boundaries. A single line longer than maxBytes becomes its own chunk
// and exceeds the cap; it is never truncated.
func Split(content string, maxBytes int) []string {
	chunks, _ := SplitReader(strings.NewReader(content), maxBytes)
	return chunks
}

// SplitReader is the streaming form of Split: a single forward pass with one
// line of lookahead, suitable for inputs too large to hold as one string.
func SplitReader(r io.Reader, maxBytes int) ([]string, error) {
	br := bufio.NewReader(r)

	var chunks []string
	var current strings.Builder

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if current.Len() > 0 && current.Len()+len(line) > maxBytes {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			// The line always goes into the accumulator, even when it alone
			// exceeds the cap.
			current.WriteString(line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks, nil
}
