package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/rotisserie/eris"
)

// identityLength is the number of hex characters kept from the lockfile
// digest. 48 bits are plenty to keep distinct dependency sets from
// colliding in an output directory.
const identityLength = 12

// ComputeIdentity derives the content-addressed build identifier from the
// raw lockfile bytes. Identical content always yields the identical
// identifier.
func ComputeIdentity(lockfile []byte) string {
	digest := sha256.Sum256(lockfile)
	return hex.EncodeToString(digest[:])[:identityLength]
}

// ComputeIdentityFile reads the lockfile at path and returns its identifier.
func ComputeIdentityFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "failed to read lockfile %s", path)
	}

	return ComputeIdentity(content), nil
}
