package artifacts

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cryptorun/btcore/internal/corerr"
)

// writeFileAtomic writes data to filename using a temp-then-rename
// pattern, generalized from the teacher's internal/atomicio.WriteFile.
// The temp file carries a uuid suffix (not a fixed ".tmp") so two
// concurrent runs writing into the same output directory never collide
// on the temp name — uuid is used here purely as a filesystem nonce,
// never as a deterministic run identifier.
func writeFileAtomic(filename string, data []byte, perm fs.FileMode) error {
	tmp := filename + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "writing temp artifact file")
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "renaming temp artifact file into place")
	}
	return nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "creating artifact directory")
	}
	return nil
}

func joinAtomic(dir, name string, data []byte) error {
	if err := ensureDir(dir); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, name), data, 0644)
}
