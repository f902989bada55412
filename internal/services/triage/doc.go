// Package triage contains the message triage service boundary.
//
// The service classifies mailbox messages into actionable labels, turns
// actionable classifications into tasks, and rolls both up into daily briefs.
// Subpackages hold the REST API, the classification engines, SQLite storage,
// and the event publishers; message content is fetched through the
// integrations gateway client rather than stored here.
package triage
