package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestComputeIdentityStable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("identical content yields the identical identifier", prop.ForAll(
		func(content []byte) bool {
			return ComputeIdentity(content) == ComputeIdentity(append([]byte(nil), content...))
		},
		gen.SliceOf(gen.UInt8()).Map(func(bytes []uint8) []byte {
			result := make([]byte, len(bytes))
			for i, b := range bytes {
				result[i] = byte(b)
			}
			return result
		}),
	))

	properties.Property("distinct content yields distinct identifiers", prop.ForAll(
		func(content []byte) bool {
			changed := append([]byte(nil), content...)
			changed = append(changed, 0x01)
			return ComputeIdentity(content) != ComputeIdentity(changed)
		},
		gen.SliceOf(gen.UInt8()).Map(func(bytes []uint8) []byte {
			result := make([]byte, len(bytes))
			for i, b := range bytes {
				result[i] = byte(b)
			}
			return result
		}),
	))

	properties.TestingRun(t)
}

func TestComputeIdentityShape(t *testing.T) {
	identity := ComputeIdentity([]byte("requests==2.31.0\n"))
	if len(identity) != identityLength {
		t.Fatalf("expected %d characters, got %d (%s)", identityLength, len(identity), identity)
	}

	for _, char := range identity {
		if !(char >= '0' && char <= '9' || char >= 'a' && char <= 'f') {
			t.Fatalf("identifier %s contains non-hex character %c", identity, char)
		}
	}
}

func TestComputeIdentityFile(t *testing.T) {
	dir := t.TempDir()
	lockfile := filepath.Join(dir, "uv.lock")

	content := []byte("version = 1\n")
	if err := os.WriteFile(lockfile, content, 0644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := ComputeIdentityFile(lockfile)
	if err != nil {
		t.Fatal(err)
	}

	if fromFile != ComputeIdentity(content) {
		t.Fatalf("file identity %s differs from content identity %s", fromFile, ComputeIdentity(content))
	}

	_, err = ComputeIdentityFile(filepath.Join(dir, "missing.lock"))
	if err == nil {
		t.Fatal("expected an error for a missing lockfile")
	}
}
