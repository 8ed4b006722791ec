package store

import "errors"

var ErrDuplicateID = errors.New("duplicate product id")
