package mqtt

import "errors"

// ErrNotConnected is returned when publishing while the broker connection is down.
var ErrNotConnected = errors.New("mqtt client not connected")

// ErrPublishFailed wraps the last error once every publish attempt failed.
var ErrPublishFailed = errors.New("mqtt publish failed")
