// Package observability provides event logging, metrics, and alerting
// for the work engine. Events are persisted as structured JSON Lines and
// metrics are derived on demand from the event log.
package observability
