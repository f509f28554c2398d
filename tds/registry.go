package tds

import "sync"

var (
	dialerMu      sync.RWMutex
	defaultDialer Dialer
)

// RegisterDialer installs the transport implementation used when a pool is
// opened without an explicit dialer. Transport drivers call this from an
// init function, mirroring database/sql driver registration.
func RegisterDialer(d Dialer) {
	dialerMu.Lock()
	defer dialerMu.Unlock()
	defaultDialer = d
}

// DefaultDialer returns the registered transport dialer, or nil when no
// driver has been imported.
func DefaultDialer() Dialer {
	dialerMu.RLock()
	defer dialerMu.RUnlock()
	return defaultDialer
}
