package feedgen

import "errors"

// ErrBadConfig marks an unusable generation request.
var ErrBadConfig = errors.New("bad feed generation config")
