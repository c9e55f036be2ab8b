package session

import "time"

// SetClock replaces the manager's clock in tests.
func SetClock(m *Manager, now func() time.Time) { m.now = now }
