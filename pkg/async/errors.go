package async

import "errors"

// ErrTimeout is returned by AwaitWithTimeout when the future does not
// complete in time. The underlying computation keeps running.
var ErrTimeout = errors.New("async: timed out waiting for future completion")
