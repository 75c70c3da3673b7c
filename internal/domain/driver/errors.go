package driver

import "errors"

var (
	ErrDriverNotFound     = errors.New("driver not found")
	ErrInvalidDriverID    = errors.New("invalid driver id")
	ErrInvalidDriverName  = errors.New("invalid driver name")
	ErrInvalidDriverPhone = errors.New("invalid driver phone")
)
