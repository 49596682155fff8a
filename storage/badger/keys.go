package badger

import (
	"encoding/binary"
)

// Key layout
const (
	vectorPrefix      = "vec:"
	generationKey     = "meta:gen"
	fingerprintKey    = "meta:fp"
	generationKeySize = len(vectorPrefix) + 8
)

// makeGenerationPrefix generates the key prefix shared by every entry of one
// saved generation.
// Format: prefix:generation
func makeGenerationPrefix(gen uint64) []byte {
	buf := make([]byte, generationKeySize)
	offset := copy(buf, vectorPrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], gen)
	return buf
}

// makeVectorKey generates a key for the seq-th entry of a generation.
// Keys sort in insertion order within a generation.
// Format: prefix:generation:seq
func makeVectorKey(gen, seq uint64) []byte {
	buf := make([]byte, generationKeySize+8)
	offset := copy(buf, makeGenerationPrefix(gen))
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// generationOf extracts the generation from a vector key.
func generationOf(key []byte) (uint64, bool) {
	if len(key) < generationKeySize || string(key[:len(vectorPrefix)]) != vectorPrefix {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(vectorPrefix):generationKeySize]), true
}

func encodeGeneration(gen uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, gen)
	return buf
}

func decodeGeneration(val []byte) (uint64, bool) {
	if len(val) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(val), true
}
