package embedcache

import "errors"

// ErrInvalidCapacity is returned by New when capacity is zero.
var ErrInvalidCapacity = errors.New("embedcache: capacity must be positive or Unbounded")
