package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ralt/repoadd/internal/models"
	"github.com/ralt/repoadd/internal/notify"
)

// CanSubmit reports whether the current rows may be created: the latest state
// was verified by the server, no field fails, nothing is being created, no
// row was added or removed since the last validation was issued, and no key
// input is still waiting to be resolved.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *Form) canSubmitLocked() bool {
	return f.open &&
		f.changeVerified &&
		f.validLocked() &&
		!f.adding &&
		len(f.rows) == f.validatedCount &&
		!f.resolvingKeysLocked()
}

func (f *Form) resolvingKeysLocked() bool {
	for _, r := range f.rows {
		if r.keyPending || r.keyInFlight > 0 {
			return true
		}
	}
	return false
}

// createOutcome is the result of creating one row
type createOutcome struct {
	name string
	repo *models.Repository
	err  error
}

// Submit creates one repository per row, all at once, and waits for every call.
//
// Creation is best effort with no transactional guarantee: rows that succeed
// stay created even when a sibling fails. On full success the session resets
// and closes. On any failure it stays open with the drafts untouched and a
// notification names the rows that failed and those that were created.
func (f *Form) Submit(ctx context.Context) ([]models.Repository, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if !f.canSubmitLocked() {
		f.mu.Unlock()
		return nil, ErrNotReady
	}

	session := f.session
	reqs := make([]models.RepositoryRequest, len(f.rows))
	for i, r := range f.rows {
		reqs[i] = r.draft.ToRepositoryRequest()
	}
	f.adding = true
	f.signalLocked()
	f.mu.Unlock()

	logrus.Infof("Creating %d repositories...", len(reqs))
	outcomes := f.createAll(ctx, reqs)

	f.mu.Lock()
	defer f.unlock()
	defer f.signalLocked()

	f.adding = false

	var created []models.Repository
	var failed, succeeded []string
	var errs []string
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o.name)
			errs = append(errs, fmt.Sprintf("%s: %v", o.name, o.err))
			continue
		}
		succeeded = append(succeeded, o.name)
		if o.repo != nil {
			created = append(created, *o.repo)
		}
	}

	if len(failed) > 0 {
		desc := "Failed: " + strings.Join(errs, "; ")
		if len(succeeded) > 0 {
			desc += ". Created: " + strings.Join(succeeded, ", ")
		}
		f.notifyLocked(notify.Notification{
			Variant:     notify.VariantDanger,
			Title:       "Error creating repositories",
			Description: desc,
		})
		return created, &models.ContentError{
			Type: models.ErrSubmission,
			Row:  strings.Join(failed, ", "),
			Err:  fmt.Errorf("failed to create %d of %d repositories", len(failed), len(outcomes)),
		}
	}

	f.notifyLocked(notify.Notification{
		Variant: notify.VariantSuccess,
		Title:   fmt.Sprintf("%d repositories added", len(created)),
	})

	if session == f.session {
		f.closeLocked()
	}
	return created, nil
}

// createAll issues every create call concurrently; a failure does not cancel siblings
func (f *Form) createAll(ctx context.Context, reqs []models.RepositoryRequest) []createOutcome {
	outcomes := make([]createOutcome, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			reqCtx := ctx
			if f.requestTimeout > 0 {
				var cancel context.CancelFunc
				reqCtx, cancel = context.WithTimeout(ctx, f.requestTimeout)
				defer cancel()
			}

			repo, err := f.backend.CreateRepository(reqCtx, req)
			if err != nil {
				err = &models.ContentError{Type: models.ErrTransport, Row: req.Name, Err: err}
			}

			outcomes[i] = createOutcome{name: req.Name, repo: repo, err: err}
			return nil
		})
	}
	g.Wait()

	return outcomes
}
