//go:build !windows

package datastore

import (
	"golang.org/x/sys/unix"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

func freeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if stat.Bsize <= 0 {
		return 0, errors.Newf("invalid block size %d for %s", stat.Bsize, path).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Build()
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
