package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters, per current OWASP guidance. Raising memory is
// the preferred hardening lever; the stored PHC string records the
// parameters each hash was created with, so old hashes keep verifying.
const (
	argonIterations  = 3
	argonMemoryKiB   = 64 * 1024
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// phcFieldCount is the number of $-separated fields in a PHC string:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
const phcFieldCount = 6

var errMalformedHash = errors.New("malformed password hash")

// HashPassword derives an Argon2id digest of the password under a fresh
// random salt and encodes it as a PHC string.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt,
		argonIterations, argonMemoryKiB, argonParallelism, argonKeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKiB, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)
	return encoded, nil
}

// VerifyPassword reports whether password matches the stored PHC string.
// The candidate digest is recomputed with the parameters embedded in the
// stored hash and compared in constant time. A malformed stored hash
// verifies false with an error, never panics.
func VerifyPassword(password, stored string) (bool, error) {
	salt, digest, params, err := decodePHC(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt,
		params.iterations, params.memoryKiB, params.parallelism, uint32(len(digest))) //nolint:gosec // G115: digest length fits uint32

	return subtle.ConstantTimeCompare(digest, candidate) == 1, nil
}

type argonParams struct {
	iterations  uint32
	memoryKiB   uint32
	parallelism uint8
}

// decodePHC splits a PHC string into salt, digest, and cost parameters.
func decodePHC(encoded string) (salt, digest []byte, params argonParams, err error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != phcFieldCount {
		return nil, nil, params, errMalformedHash
	}
	if fields[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", fields[1])
	}

	var version int
	if _, scanErr := fmt.Sscanf(fields[2], "v=%d", &version); scanErr != nil {
		return nil, nil, params, fmt.Errorf("parsing version: %w", scanErr)
	}

	if _, scanErr := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&params.memoryKiB, &params.iterations, &params.parallelism); scanErr != nil {
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", scanErr)
	}

	salt, err = base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}

	digest, err = base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding digest: %w", err)
	}

	return salt, digest, params, nil
}
