package donations

import "errors"

var ErrNotFound = errors.New("donation not found")
