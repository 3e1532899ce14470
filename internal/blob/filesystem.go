package blob

import (
	fsstore "github.com/MurrLabGEDEV/HiTransMeth/internal/infra/blob/fs"
)

// NewFilesystem returns a blob.Store rooted at a local directory.
func NewFilesystem(root string) (Store, error) {
	s, err := fsstore.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}
