package core

import "errors"

// ErrZeroInverse is returned whenever a zero field element is inverted,
// individually or as part of a batch.
var ErrZeroInverse = errors.New("field: cannot invert zero")

// ErrShape is returned for any structural mismatch: tree counts, column
// counts, or log-sizes outside the supported range.
var ErrShape = errors.New("shape error")
