package form

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/repoadd/internal/gpgkey"
	"github.com/ralt/repoadd/internal/notify"
)

func (r *row) stopKeyTimer() {
	if r.keyTimer != nil {
		r.keyTimer.Stop()
		r.keyTimer = nil
	}
	r.keyPending = false
}

// armKeyResolutionLocked restarts the row's key debounce timer
func (f *Form) armKeyResolutionLocked(r *row) {
	if !f.open {
		return
	}

	r.stopKeyTimer()
	r.keySeq++
	r.keyPending = true

	id, seq, session := r.id, r.keySeq, f.session
	r.keyTimer = time.AfterFunc(f.debounce, func() {
		f.resolveKey(session, id, seq)
	})
}

// resolveKey turns the settled key input of one row into literal key material.
// URLs are fetched through the backend; anything else is taken as-is.
func (f *Form) resolveKey(session uint64, id RowID, seq uint64) {
	f.mu.Lock()

	_, r := f.findLocked(id)
	if session != f.session || r == nil || r.keySeq != seq {
		f.mu.Unlock()
		return
	}

	r.keyPending = false
	r.keyTimer = nil
	input := r.draft.GPGKeyInput

	if !gpgkey.IsURL(input) {
		f.applyResolvedKeyLocked(r, input, input)
		f.signalLocked()
		f.mu.Unlock()
		return
	}

	r.keyInFlight++
	r.draft.GPGLoading = true
	f.signalLocked()
	f.mu.Unlock()

	logrus.Debugf("Fetching GPG key for row %s from %s", id, input)
	ctx, cancel := f.requestContext()
	key, err := f.backend.FetchGPGKey(ctx, strings.TrimSpace(input))
	cancel()

	f.mu.Lock()
	defer f.unlock()
	defer f.signalLocked()

	// The row may have been removed while the fetch was in flight.
	_, r = f.findLocked(id)
	if session != f.session || r == nil {
		logrus.Debugf("Dropping GPG key for removed row %s", id)
		return
	}

	r.keyInFlight--
	r.draft.GPGLoading = r.keyInFlight > 0

	if r.keySeq != seq {
		logrus.Debugf("Dropping GPG key for row %s, input changed", id)
		return
	}

	resolved := input
	if err != nil {
		f.notifyLocked(notify.Notification{
			Variant:     notify.VariantWarning,
			Title:       "Unable to fetch GPG key",
			Description: err.Error(),
		})
	} else if key != input {
		resolved = key
	}

	f.applyResolvedKeyLocked(r, input, resolved)
}

// applyResolvedKeyLocked stores resolved key material and seeds metadata
// verification the first time a key appears on the row. The seed is taken from
// the last known signature probe and settled again by the next validation,
// since the probe may predate the current URL.
func (f *Form) applyResolvedKeyLocked(r *row, input, resolved string) {
	prev := r.draft.ResolvedGPGKey
	if prev == resolved {
		return
	}

	r.draft.ResolvedGPGKey = resolved
	r.seedMetadata = false
	if !f.hidePackageVerification && prev == "" && input != "" {
		r.draft.MetadataVerification = signaturePresent(r.result)
		r.seedMetadata = true
	}

	logrus.Debugf("Resolved GPG key for row %s", r.id)
	f.markChangedLocked()
}
