package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qrt/internal/crypto"
	"qrt/internal/hasher"
)

// Wire grammar, byte-for-byte (the interop contract with scanners and other
// tools):
//
//	--BEGIN part_01_of_03 file: notes.txt chunk_hash: 16hex file_hash: 64hex--
//	<body>--END part_01--
//
// Encrypted records use "BEGIN ENCRYPTED"/"END ENCRYPTED" and carry a base64
// payload instead of the body. Part numbers are zero-padded to at least two
// digits and widen naturally from 100 up.
const (
	beginPlain     = "--BEGIN part_"
	beginEncrypted = "--BEGIN ENCRYPTED part_"
	endPlain       = "--END part_"
	endEncrypted   = "--END ENCRYPTED part_"

	fileField      = " file: "
	chunkHashField = " chunk_hash: "
	fileHashField  = " file_hash: "

	frameClose = "--"
)

var (
	ErrBadFormat     = errors.New("record does not match chunk grammar")
	ErrIndexMismatch = errors.New("header and footer part numbers differ")
)

// Encode frames a chunk into its wire record. A nil engine produces a plain
// record; with an engine the body is encrypted under password and the payload
// becomes the transport blob. The chunk hash always covers the plaintext body.
func Encode(c Chunk, enc *crypto.Engine, password string) (string, error) {
	chunkHash := hasher.ChunkHash(c.Body)

	if enc == nil {
		header := fmt.Sprintf("--BEGIN part_%02d_of_%02d file: %s chunk_hash: %s file_hash: %s--\n",
			c.Index, c.Total, c.Filename, chunkHash, c.FileHash)
		footer := fmt.Sprintf("--END part_%02d--", c.Index)
		return header + c.Body + footer, nil
	}

	ciphertext, salt, iv, err := enc.Encrypt(c.Body, password)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt chunk %d: %w", c.Index, err)
	}
	payload := crypto.EncodeTransport(ciphertext, salt, iv)

	header := fmt.Sprintf("--BEGIN ENCRYPTED part_%02d_of_%02d file: %s chunk_hash: %s file_hash: %s--\n",
		c.Index, c.Total, c.Filename, chunkHash, c.FileHash)
	footer := fmt.Sprintf("--END ENCRYPTED part_%02d--", c.Index)
	return header + payload + footer, nil
}

// Decode parses a wire record back into structured fields. Hashes are not
// verified here: verification may need a password first and belongs to the
// reassembler.
func Decode(s string) (WireRecord, error) {
	// Outer whitespace comes from file editors and scanners, never from the
	// grammar itself; the body sits strictly inside the frame.
	s = strings.TrimSpace(s)

	var rec WireRecord
	var beginTag, endTag string

	switch {
	case strings.HasPrefix(s, beginEncrypted):
		rec.Encrypted = true
		beginTag, endTag = beginEncrypted, endEncrypted
	case strings.HasPrefix(s, beginPlain):
		beginTag, endTag = beginPlain, endPlain
	default:
		return WireRecord{}, fmt.Errorf("%w: missing begin marker", ErrBadFormat)
	}

	headerEnd := strings.IndexByte(s, '\n')
	if headerEnd < 0 {
		return WireRecord{}, fmt.Errorf("%w: missing header line break", ErrBadFormat)
	}
	header := s[len(beginTag):headerEnd]
	rest := s[headerEnd+1:]

	if err := parseHeader(header, &rec); err != nil {
		return WireRecord{}, err
	}

	footerStart := strings.LastIndex(rest, endTag)
	if footerStart < 0 {
		return WireRecord{}, fmt.Errorf("%w: missing end marker", ErrBadFormat)
	}
	footer := rest[footerStart:]
	if !strings.HasSuffix(footer, frameClose) || len(footer) <= len(endTag)+len(frameClose) {
		return WireRecord{}, fmt.Errorf("%w: malformed end marker", ErrBadFormat)
	}

	footerIndex, err := strconv.Atoi(footer[len(endTag) : len(footer)-len(frameClose)])
	if err != nil {
		return WireRecord{}, fmt.Errorf("%w: bad footer part number", ErrBadFormat)
	}
	if footerIndex != rec.Index {
		return WireRecord{}, fmt.Errorf("%w: header %d vs footer %d", ErrIndexMismatch, rec.Index, footerIndex)
	}

	rec.Payload = rest[:footerStart]
	if rec.Encrypted {
		// Base64 is whitespace-insensitive; scanners sometimes append a line
		// break between blob and footer.
		rec.Payload = strings.TrimSpace(rec.Payload)
	}

	return rec, nil
}

// parseHeader reads "NN_of_MM file: <name> chunk_hash: <h> file_hash: <h>--".
// The filename may contain spaces, so the hash fields are anchored from the
// right.
func parseHeader(header string, rec *WireRecord) error {
	if !strings.HasSuffix(header, frameClose) {
		return fmt.Errorf("%w: unterminated header", ErrBadFormat)
	}
	header = header[:len(header)-len(frameClose)]

	fileHashAt := strings.LastIndex(header, fileHashField)
	if fileHashAt < 0 {
		return fmt.Errorf("%w: missing file_hash field", ErrBadFormat)
	}
	rec.FileHash = header[fileHashAt+len(fileHashField):]
	header = header[:fileHashAt]

	chunkHashAt := strings.LastIndex(header, chunkHashField)
	if chunkHashAt < 0 {
		return fmt.Errorf("%w: missing chunk_hash field", ErrBadFormat)
	}
	rec.ChunkHash = header[chunkHashAt+len(chunkHashField):]
	header = header[:chunkHashAt]

	fileAt := strings.Index(header, fileField)
	if fileAt < 0 {
		return fmt.Errorf("%w: missing file field", ErrBadFormat)
	}
	rec.Filename = header[fileAt+len(fileField):]
	counters := header[:fileAt]

	if !isHex(rec.ChunkHash) || !isHex(rec.FileHash) {
		return fmt.Errorf("%w: hash fields are not hex", ErrBadFormat)
	}
	if rec.Filename == "" {
		return fmt.Errorf("%w: empty filename", ErrBadFormat)
	}

	indexStr, totalStr, found := strings.Cut(counters, "_of_")
	if !found {
		return fmt.Errorf("%w: missing part counters", ErrBadFormat)
	}
	var err error
	if rec.Index, err = strconv.Atoi(indexStr); err != nil {
		return fmt.Errorf("%w: bad part number", ErrBadFormat)
	}
	if rec.Total, err = strconv.Atoi(totalStr); err != nil {
		return fmt.Errorf("%w: bad total count", ErrBadFormat)
	}
	if rec.Index < 1 || rec.Total < 1 {
		return fmt.Errorf("%w: part numbers start at 1", ErrBadFormat)
	}

	return nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
