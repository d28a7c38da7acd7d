package retrieve

// State identifies where a retrieval is in its lifecycle. Transitions are
// driven only by fetch results, password submissions, cancellation, and
// teardown; see Controller.
type State int

const (
	// StateIdle is the initial state before Start.
	StateIdle State = iota
	// StateFetching means the initial fetch is in flight.
	StateFetching
	// StatePolling means the server is still computing the report and the
	// controller re-fetches on a fixed interval.
	StatePolling
	// StateAwaitingPassword means a completed report is present but no
	// usable cached key; a password is needed to proceed.
	StateAwaitingPassword
	// StateAutoDecrypting means a cached key was found and decryption is
	// running without a password prompt.
	StateAutoDecrypting
	// StateDecrypting means a submitted password is being tried.
	StateDecrypting
	// StateReady means the plaintext report is available. Terminal.
	StateReady
	// StateReportError means the server reported a failed analysis. Terminal.
	StateReportError
	// StateFetchError means a fetch failed outside of polling. Terminal for
	// this controller; retry means starting a fresh one.
	StateFetchError
	// StateUnavailable means the report completed but carries no keypair,
	// so decryption can never succeed. Terminal.
	StateUnavailable
	// StateCancelled means the user dismissed the password prompt; nothing
	// is shown and nothing is pending.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePolling:
		return "polling"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAutoDecrypting:
		return "auto_decrypting"
	case StateDecrypting:
		return "decrypting"
	case StateReady:
		return "ready"
	case StateReportError:
		return "report_error"
	case StateFetchError:
		return "fetch_error"
	case StateUnavailable:
		return "unavailable"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the visit.
func (s State) Terminal() bool {
	switch s {
	case StateReady, StateReportError, StateFetchError, StateUnavailable:
		return true
	}
	return false
}
