package persist

import (
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/tileworld/engine/internal/data"
)

// Encode serializes a world snapshot into its stored payload.
func Encode(lvl *data.Level) ([]byte, error) {
	b, err := msgpack.Marshal(lvl)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", lvl.Name, err)
	}
	return b, nil
}

func Decode(payload []byte) (*data.Level, error) {
	var lvl data.Level
	if err := msgpack.Unmarshal(payload, &lvl); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &lvl, nil
}

// Digest is the hex blake2b-256 of a payload. Equal worlds encode to equal
// payloads, so an unchanged world has an unchanged digest.
func Digest(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
