// Package timeouts defines shared timeout constants used by cartstore
// processes. Keeping them together makes the bounds discoverable.
package timeouts

import "time"

// CacheDial caps the wait time when dialing the cachekv service, including
// its health check.
const CacheDial = 2 * time.Second

// CacheRequest caps a single cachekv RPC issued by the primary tier client.
const CacheRequest = 2 * time.Second

// AvailabilityProbe is the default bound for one tier-1 availability race.
const AvailabilityProbe = 5 * time.Second

// CLICommand bounds one cartctl invocation end to end.
const CLICommand = 30 * time.Second

// Shutdown limits how long a gRPC server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
