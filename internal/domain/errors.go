package domain

import "errors"

var (
	ErrConfig           = errors.New("invalid configuration")
	ErrLoad             = errors.New("load host list")
	ErrConnect          = errors.New("connect host")
	ErrSend             = errors.New("send control message")
	ErrNoReachableHosts = errors.New("no reachable hosts")
	ErrCancelled        = errors.New("session cancelled")
	ErrSessionInvalid   = errors.New("session is not in a valid state")
	ErrUnknownHost      = errors.New("unknown host")
)
