//go:build windows

package datastore

import (
	"golang.org/x/sys/windows"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

func freeSpace(path string) (uint64, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &free, &total, &totalFree); err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return free, nil
}
