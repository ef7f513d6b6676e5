// Package form implements the multi-row "add content" session: an ordered
// collection of repository drafts that is validated against the service in
// debounced batches, resolves GPG key URLs in the background, and gates
// creation on the latest state having been verified by the server.
//
// All state lives behind one mutex. Network calls run on their own goroutines
// and merge their results back only when the generation token they captured
// still matches, so a result computed for an older state is dropped rather
// than applied.
package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ralt/repoadd/internal/models"
	"github.com/ralt/repoadd/internal/notify"
)

const (
	// DefaultDebounce is the quiet period before validation or key resolution runs
	DefaultDebounce = 300 * time.Millisecond

	// DefaultMaxRows is the largest number of drafts a session may hold
	DefaultMaxRows = 20

	// DefaultRequestTimeout bounds each call made to the backend
	DefaultRequestTimeout = 60 * time.Second
)

var (
	ErrClosed              = errors.New("add content session is not open")
	ErrRowLimit            = errors.New("maximum number of repositories reached")
	ErrInvalidState        = errors.New("resolve the errors of the current repositories first")
	ErrLastRow             = errors.New("cannot remove the only repository")
	ErrNotReady            = errors.New("repositories have not been verified")
	ErrMetadataUnsigned    = errors.New("repository metadata is not signed, metadata verification is not possible")
	ErrUnknownArchitecture = errors.New("unknown architecture")
	ErrUnknownVersion      = errors.New("unknown OS version")
)

// Backend is the content-sources service as seen by a session
type Backend interface {
	// FetchGPGKey downloads the key published at url
	FetchGPGKey(ctx context.Context, url string) (string, error)

	// ValidateContentList validates every row in one call; results are index aligned with rows
	ValidateContentList(ctx context.Context, rows []models.ValidationRequest) ([]models.ValidationResult, error)

	// CreateRepository creates a single repository
	CreateRepository(ctx context.Context, repo models.RepositoryRequest) (*models.Repository, error)
}

// RowID identifies a draft for its whole life, independent of its position
type RowID string

func newRowID() RowID {
	return RowID(uuid.NewString())
}

// row is the composite record for one draft
type row struct {
	id      RowID
	draft   models.RepositoryDraft
	touched models.FieldFlags
	errors  models.FieldErrors

	// last server verdict for this row, used for metadata decisions
	result *models.ValidationResult

	// key resolution bookkeeping
	keyTimer    *time.Timer
	keySeq      uint64
	keyPending  bool
	keyInFlight int

	// metadata verification follows the next validation that covers the key
	seedMetadata bool
}

func newRow() *row {
	return &row{
		id:     newRowID(),
		draft:  models.NewRepositoryDraft(),
		errors: models.FieldErrors{},
	}
}

// Form is one add content session
type Form struct {
	mu sync.Mutex

	backend  Backend
	notifier notify.Notifier
	params   models.RepositoryParams

	ctx                     context.Context
	debounce                time.Duration
	requestTimeout          time.Duration
	maxRows                 int
	hidePackageVerification bool

	open    bool
	session uint64
	rows    []*row

	// generation increments on every change to draft content or row count
	generation     uint64
	changeVerified bool

	// row count observed by the most recently issued validation
	validatedCount int

	validateTimer   *time.Timer
	validateSeq     uint64
	validatePending bool
	validating      int

	adding bool

	// notifications queued under the lock, delivered by unlock
	outbox     []notify.Notification
	delivering int

	// closed and replaced whenever observable state changes
	changed chan struct{}
}

// Option configures a Form
type Option func(*Form)

// WithDebounce sets the debounce window for validation and key resolution
func WithDebounce(d time.Duration) Option {
	return func(f *Form) {
		f.debounce = d
	}
}

// WithMaxRows lowers the maximum number of rows; it cannot exceed DefaultMaxRows
func WithMaxRows(n int) Option {
	return func(f *Form) {
		if n > 0 && n <= DefaultMaxRows {
			f.maxRows = n
		}
	}
}

// WithHidePackageVerification disables metadata verification seeding
func WithHidePackageVerification(hide bool) Option {
	return func(f *Form) {
		f.hidePackageVerification = hide
	}
}

// WithContext sets the parent context of every backend call
func WithContext(ctx context.Context) Option {
	return func(f *Form) {
		f.ctx = ctx
	}
}

// WithRequestTimeout bounds each backend call; zero disables the bound
func WithRequestTimeout(d time.Duration) Option {
	return func(f *Form) {
		f.requestTimeout = d
	}
}

// New creates a closed session. params is the read-only reference data used to
// populate and infer architectures and versions.
func New(backend Backend, notifier notify.Notifier, params models.RepositoryParams, opts ...Option) *Form {
	if notifier == nil {
		notifier = notify.NewLogNotifier(nil)
	}

	f := &Form{
		backend:        backend,
		notifier:       notifier,
		params:         params,
		ctx:            context.Background(),
		debounce:       DefaultDebounce,
		requestTimeout: DefaultRequestTimeout,
		maxRows:        DefaultMaxRows,
		changed:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.rows = []*row{newRow()}
	return f
}

// Open starts the session with a single default row and schedules its first validation
func (f *Form) Open() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.open {
		return
	}

	f.resetLocked()
	f.open = true
	f.session++
	logrus.Debugf("Add content session %d opened", f.session)

	f.markChangedLocked()
}

// Close cancels the session and discards every draft
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeLocked()
}

func (f *Form) closeLocked() {
	if !f.open {
		return
	}

	logrus.Debugf("Add content session %d closed", f.session)
	f.open = false
	f.session++
	f.resetLocked()
	f.signalLocked()
}

// resetLocked restores the single default row and drops pending timers
func (f *Form) resetLocked() {
	if f.validateTimer != nil {
		f.validateTimer.Stop()
		f.validateTimer = nil
	}
	f.validatePending = false

	for _, r := range f.rows {
		r.stopKeyTimer()
	}

	f.rows = []*row{newRow()}
	f.changeVerified = false
	f.validatedCount = 0
	f.generation++
}

// IsOpen reports whether the session is open
func (f *Form) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// markChangedLocked records an edit: the server round trip no longer covers the
// current state, so verification is cleared and validation re-armed.
func (f *Form) markChangedLocked() {
	f.generation++
	f.changeVerified = false
	f.armValidationLocked()
	f.signalLocked()
}

// signalLocked wakes everyone waiting for a state change
func (f *Form) signalLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *Form) settledLocked() bool {
	return !f.validatePending && f.validating == 0 && !f.adding && f.delivering == 0 && !f.resolvingKeysLocked()
}

// notifyLocked queues n until the lock is released
func (f *Form) notifyLocked(n notify.Notification) {
	f.outbox = append(f.outbox, n)
}

// unlock releases the lock, then delivers the queued notifications so a
// notifier may call back into the session.
func (f *Form) unlock() {
	out := f.outbox
	f.outbox = nil
	if len(out) == 0 {
		f.mu.Unlock()
		return
	}

	f.delivering++
	f.mu.Unlock()

	for _, n := range out {
		f.notifier.Notify(n)
	}

	f.mu.Lock()
	f.delivering--
	f.signalLocked()
	f.mu.Unlock()
}

// WaitSettled blocks until no debounce timer is armed and no backend call is in flight
func (f *Form) WaitSettled(ctx context.Context) error {
	for {
		f.mu.Lock()
		if f.settledLocked() {
			f.mu.Unlock()
			return nil
		}
		ch := f.changed
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Busy reports whether any asynchronous work is outstanding or the current state is unverified
func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.settledLocked() || !f.changeVerified
}

// requestContext derives the context for one backend call
func (f *Form) requestContext() (context.Context, context.CancelFunc) {
	if f.requestTimeout > 0 {
		return context.WithTimeout(f.ctx, f.requestTimeout)
	}
	return context.WithCancel(f.ctx)
}

func (f *Form) findLocked(id RowID) (int, *row) {
	for i, r := range f.rows {
		if r.id == id {
			return i, r
		}
	}
	return -1, nil
}

// RowState is a copy of one row
type RowState struct {
	ID         RowID
	Draft      models.RepositoryDraft
	Touched    models.FieldFlags
	Errors     models.FieldErrors
	Validation *models.ValidationResult
}

// State is a copy of the whole session
type State struct {
	Open           bool
	Rows           []RowState
	ChangeVerified bool
	Valid          bool
	CanSubmit      bool
	Adding         bool
}

// Snapshot returns a consistent copy of the session state
func (f *Form) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := State{
		Open:           f.open,
		ChangeVerified: f.changeVerified,
		Valid:          f.validLocked(),
		CanSubmit:      f.canSubmitLocked(),
		Adding:         f.adding,
		Rows:           make([]RowState, 0, len(f.rows)),
	}

	for _, r := range f.rows {
		rs := RowState{
			ID:      r.id,
			Draft:   r.draft.Clone(),
			Touched: r.touched,
			Errors:  r.errors.Clone(),
		}
		if r.result != nil {
			res := *r.result
			rs.Validation = &res
		}
		st.Rows = append(st.Rows, rs)
	}

	return st
}
