// Package timeouts defines shared timeout constants used across binaries.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// UpstreamRequest caps a single outbound HTTP request to the Integrations
// service or the model provider.
const UpstreamRequest = 10 * time.Second

// Publish caps the wait for a single event publish acknowledgement.
const Publish = 10 * time.Second
