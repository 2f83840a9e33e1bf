package notify

import "errors"

// ErrWebhookFailed marks a webhook delivery that failed on both the
// initial attempt and the retry.
var ErrWebhookFailed = errors.New("webhook delivery failed")
