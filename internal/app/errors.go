package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrBind  = errors.New("bind listener failed")
	ErrServe = errors.New("serve failed")
)
