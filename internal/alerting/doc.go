// Package alerting implements threshold-based environment alerting for
// the greenhouse gateway.
//
// # Pipeline
//
// After every environmental merge the gateway calls Evaluate, which runs
// a fixed ordered list of stateless threshold rules against the snapshot
// and returns one message fragment per match. The Dispatcher then gates
// the full fragment list behind a single global cooldown window: inside
// the window nothing is sent, outside it all current fragments go out as
// one consolidated markdown digest through the notification webhook.
//
// The cooldown timestamp only advances on a successful send, so a failed
// webhook delivery is retried on the next evaluation cycle. Dispatch
// failures are logged and never propagate to the message-handling path.
//
// Successfully dispatched digests are recorded in the SQLite alert
// history table via HistoryRepository.
package alerting
