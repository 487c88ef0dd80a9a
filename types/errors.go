package types

import "errors"

// Error kinds. Callers wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrIO           = errors.New("io error")
	ErrArchive      = errors.New("archive error")
	ErrTunnel       = errors.New("tunnel error")
	ErrPortBind     = errors.New("port bind error")
	ErrFailedAuth   = errors.New("authentication failed")
	ErrNoCredential = errors.New("auth token does not exist")
	ErrOutsideRoot  = errors.New("path escapes served root")
)
