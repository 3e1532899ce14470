package semaphore

import (
	"fmt"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
)

// Driver selects the marker backend.
type Driver string

const (
	DriverFile Driver = "fs"
	DriverBlob Driver = "blob"
)

// Open returns a FileStore under dir, or a BlobStore over objects.
// objects may be nil for the file driver.
func Open(driver Driver, dir string, objects blob.Store) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(dir)
	case DriverBlob:
		if objects == nil {
			return nil, fmt.Errorf("semaphore: blob driver requires a blob store")
		}
		return NewBlobStore(objects), nil
	default:
		return nil, fmt.Errorf("semaphore: unknown driver %q", driver)
	}
}
