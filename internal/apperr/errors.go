package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNoSchema           = errors.New("no schema sources found")
	ErrCollectionNotFound = errors.New("collection not found")
)
