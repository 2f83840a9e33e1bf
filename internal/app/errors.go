package service

import "errors"

// ErrNotConfigured is returned by Start when a required dependency
// (store or source) was not injected.
var ErrNotConfigured = errors.New("service missing required dependencies")
