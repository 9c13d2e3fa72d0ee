// Package app wires configuration, logging, telemetry, the registry store and
// the HTTP surface into a runnable licensing server.
package app
