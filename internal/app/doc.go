// Package app wires the account service: it selects the user and session
// stores from configuration, builds the provider adapters and mounts the
// HTTP routes together with the probes and metrics.
package app
