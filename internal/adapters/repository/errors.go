package repository

import "errors"

// Sentinel kinds for snapshot persistence errors.
var (
	ErrWrite   = errors.New("snapshot write failed")
	ErrRead    = errors.New("snapshot read failed")
	ErrArchive = errors.New("snapshot archive failed")
)
