// Package report defines the process-wide exception listener through which
// subsystems surface errors without owning the user-notification policy.
package report

// Listener receives errors raised anywhere in the bridge. Recoverable errors
// abandon the triggering operation only; unrecoverable errors are expected to
// terminate the session after user notification.
type Listener interface {
	OnException(recoverable bool, err error)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(recoverable bool, err error)

// OnException calls f.
func (f ListenerFunc) OnException(recoverable bool, err error) { f(recoverable, err) }

// Discard is a Listener that drops every report. Useful in tests.
var Discard Listener = ListenerFunc(func(bool, error) {})
