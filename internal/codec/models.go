package codec

// Chunk is one bounded slice of a file's content, before framing.
type Chunk struct {
	Index    int // 1-based
	Total    int
	Filename string
	FileHash string
	Body     string
}

// WireRecord is the parsed form of one framed chunk. It is a value type:
// produced once by Decode (or Encode on the forward path) and never mutated.
type WireRecord struct {
	Index     int
	Total     int
	Filename  string
	ChunkHash string
	FileHash  string
	Encrypted bool
	// Payload is the plaintext body for plain records, or the base64
	// salt||iv||ciphertext blob for encrypted ones.
	Payload string
}
