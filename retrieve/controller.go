// Package retrieve drives the fetch-poll-decrypt flow for a single report
// visit: fetch the report, wait out server-side processing on a fixed
// interval, then either auto-decrypt with a cached key or prompt for the
// password, and hand a single view model to the presentation layer.
package retrieve

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/quicksandd/mirror/crypto"
	"github.com/quicksandd/mirror/internal/util"
	"github.com/quicksandd/mirror/keystore"
	"github.com/quicksandd/mirror/report"
)

// DefaultPollInterval is how long the controller waits between fetches
// while the server is still processing.
const DefaultPollInterval = 10 * time.Second

var (
	// ErrAlreadyStarted is returned by Start on a controller that has
	// already begun its visit.
	ErrAlreadyStarted = errors.New("controller already started")
	// ErrClosed is returned for operations on a closed controller.
	ErrClosed = errors.New("controller closed")
	// ErrDecryptInProgress rejects a password submitted while a previous
	// attempt is still running; only one may be in flight.
	ErrDecryptInProgress = errors.New("a decrypt attempt is already in progress")
	// ErrNotAwaitingPassword rejects a password submitted in any state
	// other than AwaitingPassword.
	ErrNotAwaitingPassword = errors.New("not awaiting a password")
)

// msgCacheInvalid explains the fallback when a cached key stops opening the
// report. The cache entry is kept; the failure may be server-side.
const msgCacheInvalid = "saved key could not decrypt this report; enter your password"

// Fetcher fetches a report by identifier. *report.Client implements it.
type Fetcher interface {
	FetchReport(ctx context.Context, reportID string) (*report.Report, error)
}

// View is the snapshot handed to the presentation layer: the current state,
// the unencrypted report metadata, and, once Ready, the decrypted plaintext.
type View struct {
	State         State
	Report        *report.Report
	Plaintext     []byte
	RetryCount    int
	FetchError    string
	PasswordError string
}

// fetchAction tells the fetch loop what to do after a result is applied.
type fetchAction int

const (
	actionStop fetchAction = iota
	actionPoll
	actionAutoDecrypt
)

// Controller is the retrieval state machine for one report visit. All
// methods are safe for concurrent use. A Controller is single-shot: once a
// terminal state is reached (or Close is called), retrying means creating a
// new one.
type Controller struct {
	reportID string
	fetcher  Fetcher
	keys     keystore.Store
	interval time.Duration
	onChange func(View)

	// Crypto entry points, swappable in tests.
	unwrapFn func(*crypto.WrappedKeypair, string) (crypto.KeyPair, error)
	openFn   func(*crypto.Bundle, [32]byte) ([]byte, error)

	mu          sync.Mutex
	state       State
	rep         *report.Report
	plaintext   *memguard.Enclave
	retryCount  int
	fetchErr    string
	passwordErr string
	decrypting  bool
	closed      bool

	stopPoll chan struct{}
	stopOnce sync.Once
}

// Option customizes a Controller.
type Option func(*Controller)

// WithPollInterval overrides the processing poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot after
// every state transition. It runs outside the controller lock; it must not
// call back into the controller synchronously from Close.
func WithOnChange(fn func(View)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New creates a controller for one report visit.
func New(reportID string, fetcher Fetcher, keys keystore.Store, opts ...Option) *Controller {
	c := &Controller{
		reportID: reportID,
		fetcher:  fetcher,
		keys:     keys,
		interval: DefaultPollInterval,
		unwrapFn: crypto.Unwrap,
		openFn:   crypto.OpenBundle,
		state:    StateIdle,
		stopPoll: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the visit: an initial fetch, then polling or decryption as
// the report's status dictates. The fetch loop stops when ctx is cancelled,
// the controller is closed, or a non-polling state is reached.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateFetching
	c.mu.Unlock()
	c.notify()

	go c.fetchLoop(ctx)
	return nil
}

// fetchLoop issues fetches strictly sequentially: the interval wait only
// starts after the previous fetch resolves, so at most one request is ever
// outstanding for this controller.
func (c *Controller) fetchLoop(ctx context.Context) {
	for {
		rep, err := c.fetcher.FetchReport(ctx, c.reportID)
		action, cached, haveCached := c.applyFetch(rep, err)
		c.notify()

		switch action {
		case actionAutoDecrypt:
			if haveCached {
				c.autoDecrypt(rep, cached)
				c.notify()
			}
			return
		case actionPoll:
			select {
			case <-time.After(c.interval):
				c.tick()
				c.notify()
			case <-c.stopPoll:
				return
			case <-ctx.Done():
				return
			}
		default:
			return
		}
	}
}

// applyFetch folds a fetch result into the state machine and decides what
// the loop does next.
func (c *Controller) applyFetch(rep *report.Report, err error) (fetchAction, [32]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero [32]byte
	if c.closed {
		return actionStop, zero, false
	}

	if err != nil {
		if c.state == StatePolling {
			// The original keeps polling through transient fetch failures;
			// the next tick may succeed.
			c.fetchErr = err.Error()
			return actionPoll, zero, false
		}
		c.state = StateFetchError
		c.fetchErr = err.Error()
		c.cancelPolling()
		return actionStop, zero, false
	}

	c.rep = rep
	c.fetchErr = ""

	switch rep.Status {
	case report.StatusError:
		c.state = StateReportError
		c.cancelPolling()
		return actionStop, zero, false

	case report.StatusCompleted:
		c.cancelPolling()
		if priv, kerr := c.keys.Get(c.reportID); kerr == nil {
			c.state = StateAutoDecrypting
			return actionAutoDecrypt, priv, true
		}
		if rep.Keypair == nil {
			// Nothing to unwrap: the password path can never work.
			c.state = StateUnavailable
			return actionStop, zero, false
		}
		c.state = StateAwaitingPassword
		return actionStop, zero, false

	default:
		// processing, or any status this client does not know: keep polling.
		c.state = StatePolling
		return actionPoll, zero, false
	}
}

// tick counts a completed poll interval for the UI.
func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.retryCount++
}

// autoDecrypt tries the cached key against the fetched bundle. Failure
// falls back to the password prompt without evicting the cache entry.
func (c *Controller) autoDecrypt(rep *report.Report, priv [32]byte) {
	defer util.WipeArray32(&priv)
	plaintext, err := c.openFn(rep.Insights, priv)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		util.WipeBytes(plaintext)
		return
	}
	if err != nil {
		if rep.Keypair == nil {
			c.state = StateUnavailable
			return
		}
		c.state = StateAwaitingPassword
		c.passwordErr = msgCacheInvalid
		return
	}
	c.setReadyLocked(plaintext)
}

// SubmitPassword tries a password against the report's wrapped keypair. It
// returns immediately; the key derivation and decryption run on their own
// goroutine because Argon2id would otherwise stall the caller for long
// enough to freeze any interactive surface. Progress is observed via the
// change callback or Snapshot.
//
// Only one attempt may be in flight; concurrent submissions get
// ErrDecryptInProgress and have no observable effect.
func (c *Controller) SubmitPassword(password string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.decrypting {
		c.mu.Unlock()
		return ErrDecryptInProgress
	}
	if c.state != StateAwaitingPassword {
		c.mu.Unlock()
		return ErrNotAwaitingPassword
	}
	rep := c.rep
	c.decrypting = true
	c.state = StateDecrypting
	c.passwordErr = ""
	c.mu.Unlock()
	c.notify()

	go c.decryptWithPassword(rep, password)
	return nil
}

func (c *Controller) decryptWithPassword(rep *report.Report, password string) {
	kp, err := c.unwrapFn(rep.Keypair, password)
	var plaintext []byte
	if err == nil {
		plaintext, err = c.openFn(rep.Insights, kp.Private)
	}

	c.mu.Lock()
	if c.closed {
		// Disposed mid-attempt: the result must not be applied.
		c.mu.Unlock()
		util.WipeArray32(&kp.Private)
		util.WipeBytes(plaintext)
		return
	}
	c.decrypting = false
	if err != nil {
		util.WipeArray32(&kp.Private)
		// Uniform outcome for wrong password and tampered data alike.
		c.state = StateAwaitingPassword
		c.passwordErr = crypto.ErrAuthFailed.Error()
		c.mu.Unlock()
		c.notify()
		return
	}

	// The key is authenticated now, and only now is it cached.
	putErr := c.keys.Put(c.reportID, kp.Private)
	_ = putErr // a failed cache write only costs a future password prompt
	util.WipeArray32(&kp.Private)
	c.setReadyLocked(plaintext)
	c.mu.Unlock()
	c.notify()
}

// setReadyLocked seals the plaintext into an enclave and marks the visit
// done. Callers hold c.mu.
func (c *Controller) setReadyLocked(plaintext []byte) {
	// NewEnclave wipes the source buffer.
	c.plaintext = memguard.NewEnclave(plaintext)
	c.state = StateReady
	c.passwordErr = ""
}

// CancelPassword dismisses the password prompt without error: the view
// quiesces with no content shown. Ignored outside AwaitingPassword.
func (c *Controller) CancelPassword() {
	c.mu.Lock()
	if c.closed || c.state != StateAwaitingPassword {
		c.mu.Unlock()
		return
	}
	c.state = StateCancelled
	c.passwordErr = ""
	c.mu.Unlock()
	c.notify()
}

// Close tears the controller down: the poll timer is cancelled (idempotent,
// safe against a racing tick) and any in-flight password attempt becomes a
// no-op on completion.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.plaintext = nil
	c.cancelPolling()
	c.mu.Unlock()
}

// cancelPolling stops the poll timer exactly once. Callers hold c.mu.
func (c *Controller) cancelPolling() {
	c.stopOnce.Do(func() {
		close(c.stopPoll)
	})
}

// Snapshot returns a copy of the current view. The plaintext slice is the
// caller's to keep.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	v := View{
		State:         c.state,
		Report:        c.rep,
		RetryCount:    c.retryCount,
		FetchError:    c.fetchErr,
		PasswordError: c.passwordErr,
	}
	enclave := c.plaintext
	c.mu.Unlock()

	if enclave != nil {
		if buf, err := enclave.Open(); err == nil {
			v.Plaintext = util.CopyBytes(buf.Bytes())
			buf.Destroy()
		}
	}
	return v
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.onChange(c.Snapshot())
}
