package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/daybook/pkg/core"
)

// TempFilePrefix marks in-flight writes. Entries with this prefix are never listed.
const TempFilePrefix = ".daybook-tmp-"

// leafMode is the permission of published note files.
const leafMode os.FileMode = 0644

// errLeafMissing is returned when an overwrite targets a leaf that is gone.
var errLeafMissing = errors.New("leaf does not exist")

// commitLeaf stages data in a hidden file inside the leaf's container and
// renames it over filename. Readers see the old note or the new one.
// With overwrite set the leaf must already exist. Failures come back
// classified as core.ErrStoreUnavailable.
func commitLeaf(ctx context.Context, filename string, data []byte, overwrite bool) error {
	fail := func(err error) error {
		return core.Unavailable("put leaf", err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if overwrite {
		if _, err := os.Stat(filename); err != nil {
			if os.IsNotExist(err) {
				err = fmt.Errorf("%s: %w", filepath.Base(filename), errLeafMissing)
			}
			return fail(err)
		}
	}

	staged, err := stage(filepath.Dir(filename), data)
	if err != nil {
		return fail(err)
	}
	defer os.Remove(staged)

	// Last chance to abandon the write: after the rename the note is published.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := os.Rename(staged, filename); err != nil {
		return fail(fmt.Errorf("publish %s: %w", filepath.Base(filename), err))
	}
	return nil
}

// stage writes data to a synced temp file in dir and returns its path.
func stage(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return "", fmt.Errorf("stage in %s: %w", dir, err)
	}
	name := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, leafMode)
	}
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	return name, nil
}
