// Package notify delivers outbound notifications for the greenhouse
// gateway via a WeCom group robot webhook.
//
// The alert dispatcher hands it a preformatted markdown digest; the
// client wraps it in the robot API's message envelope and posts it with
// a bounded timeout and retries. Delivery failures are returned to the
// caller, which logs them - a slow or dead webhook never blocks the
// telemetry path.
package notify
