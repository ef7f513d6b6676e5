package form

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/repoadd/internal/models"
	"github.com/ralt/repoadd/internal/notify"
)

// armValidationLocked starts or restarts the validation debounce timer
func (f *Form) armValidationLocked() {
	if !f.open {
		return
	}

	if f.validateTimer != nil {
		f.validateTimer.Stop()
	}
	f.validateSeq++
	f.validatePending = true

	seq, session := f.validateSeq, f.session
	f.validateTimer = time.AfterFunc(f.debounce, func() {
		f.runValidation(session, seq)
	})
}

// validationTicket is what an issued validation remembers about the state it covered
type validationTicket struct {
	session    uint64
	generation uint64
	ids        []RowID
}

// runValidation issues one batched validation for the settled rows and merges the answer
func (f *Form) runValidation(session, seq uint64) {
	ticket, reqs, ok := f.issueValidation(session, seq)
	if !ok {
		return
	}

	ctx, cancel := f.requestContext()
	results, err := f.backend.ValidateContentList(ctx, reqs)
	cancel()

	f.mergeValidation(ticket, results, err)
}

// issueValidation snapshots the live rows and applies the first-fill touch policy
func (f *Form) issueValidation(session, seq uint64) (validationTicket, []models.ValidationRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// A newer edit re-armed the timer, or the session ended.
	if session != f.session || seq != f.validateSeq || !f.open {
		return validationTicket{}, nil, false
	}

	f.validatePending = false
	f.validateTimer = nil

	ticket := validationTicket{
		session:    f.session,
		generation: f.generation,
		ids:        make([]RowID, len(f.rows)),
	}
	reqs := make([]models.ValidationRequest, len(f.rows))

	for i, r := range f.rows {
		for _, field := range models.Fields {
			if r.draft.Value(field) != "" && !r.touched.Get(field) {
				r.touched = r.touched.Set(field, true)
			}
		}
		ticket.ids[i] = r.id
		reqs[i] = r.draft.ToValidationRequest()
	}

	f.validatedCount = len(f.rows)
	f.validating++
	f.signalLocked()

	logrus.Debugf("Validating %d repositories (generation %d)", len(reqs), ticket.generation)
	return ticket, reqs, true
}

// mergeValidation applies a validation answer if it still describes the current state
func (f *Form) mergeValidation(ticket validationTicket, results []models.ValidationResult, err error) {
	f.mu.Lock()
	defer f.unlock()

	f.validating--
	defer f.signalLocked()

	if ticket.session != f.session {
		return
	}

	if err == nil && len(results) != len(ticket.ids) {
		err = fmt.Errorf("expected %d validation results, got %d", len(ticket.ids), len(results))
	}
	if err != nil {
		logrus.Debugf("Validation failed: %v", err)
		f.notifyLocked(notify.Notification{
			Variant:     notify.VariantDanger,
			Title:       "Error validating repositories",
			Description: err.Error(),
		})
		return
	}

	if ticket.generation != f.generation {
		logrus.Debugf("Discarding validation for generation %d, now at %d", ticket.generation, f.generation)
		return
	}

	adjusted := false
	for i, id := range ticket.ids {
		_, r := f.findLocked(id)
		if r == nil {
			continue
		}

		res := results[i]
		r.result = &res
		r.errors = mergeErrors(localErrors(r.draft), serverErrors(res))

		if r.seedMetadata {
			r.seedMetadata = false
			if seed := !f.hidePackageVerification && res.URL.MetadataSignaturePresent; seed != r.draft.MetadataVerification {
				r.draft.MetadataVerification = seed
				adjusted = true
			}
		}
		if r.draft.MetadataVerification && !res.URL.MetadataSignaturePresent {
			r.draft.MetadataVerification = false
			adjusted = true
		}
	}

	if adjusted {
		// The request we just validated no longer matches the drafts.
		f.markChangedLocked()
		return
	}

	if len(ticket.ids) == len(f.rows) {
		f.changeVerified = true
	}
	logrus.Debugf("Validation merged (verified=%t, valid=%t)", f.changeVerified, f.validLocked())
}
