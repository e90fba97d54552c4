package video

import "errors"

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrInvalidPrice  = errors.New("price must be greater than 0 for paid videos")
)
