package domain

import "errors"

var (
	ErrQueueUnavailable = errors.New("queue unavailable")
	ErrDeliveryFailed   = errors.New("callback delivery failed")
	ErrUnsupportedPath  = errors.New("unsupported audio path")
)
