// ABOUTME: Checksum task fingerprinting document content
// ABOUTME: BLAKE2b by default, with SHA-256 and SHA-512 alternatives

package checksum

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/spf13/cast"
	"golang.org/x/crypto/blake2b"
)

// Task computes content digests for deduplication and verification
type Task struct{}

// New creates a checksum task executor
func New() *Task {
	return &Task{}
}

// Execute hashes the input content with the requested algorithm
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	content := cast.ToString(inputs["content"])
	algorithm := cast.ToString(inputs["algorithm"])
	if algorithm == "" {
		algorithm = "blake2b"
	}

	var hasher hash.Hash
	switch algorithm {
	case "blake2b":
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blake2b: %w", err)
		}
		hasher = h
	case "sha256":
		hasher = sha256.New()
	case "sha512":
		hasher = sha512.New()
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}

	hasher.Write([]byte(content))

	return map[string]any{
		"checksum":  hex.EncodeToString(hasher.Sum(nil)),
		"algorithm": algorithm,
		"size":      len(content),
	}, nil
}
