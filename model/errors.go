package model

import "errors"

// ErrNotList is returned when parameters are not supplied as a list.
var ErrNotList = errors.New("parameters must be a list")
