package notify

import "errors"

// ErrSendFailed indicates the webhook call did not deliver the message.
// Use errors.Is() to check.
var ErrSendFailed = errors.New("failed to send notification")
