package campaigns

import "errors"

var (
	ErrNotFound   = errors.New("campaign not found")
	ErrNotActive  = errors.New("campaign is not active")
	ErrEnded      = errors.New("campaign has ended")
	ErrNotStarted = errors.New("campaign has not started yet")
)
