// Package notifier contains the classification event consumer boundary.
//
// The service subscribes to the classification event topic, marks urgent
// items in its log stream, and drops malformed payloads after counting them
// so poison messages never wedge the subscription.
package notifier
