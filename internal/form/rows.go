package form

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ralt/repoadd/internal/models"
)

// RowPatch holds the fields to merge into a draft; nil fields are left alone
type RowPatch struct {
	Name                 *string
	URL                  *string
	GPGKeyInput          *string
	Architecture         *string
	Versions             []string
	MetadataVerification *bool
	Expanded             *bool
}

// FieldStatus is the display state of one field
type FieldStatus string

const (
	StatusDefault FieldStatus = "default"
	StatusSuccess FieldStatus = "success"
	StatusError   FieldStatus = "error"
)

// Len returns the number of rows
func (f *Form) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// RowIDs returns the row identifiers in display order
func (f *Form) RowIDs() []RowID {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]RowID, len(f.rows))
	for i, r := range f.rows {
		ids[i] = r.id
	}
	return ids
}

// RowAt returns the identifier of the row at index i
func (f *Form) RowAt(i int) (RowID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if i < 0 || i >= len(f.rows) {
		return "", false
	}
	return f.rows[i].id, true
}

// Row returns a copy of a single row
func (f *Form) Row(id RowID) (RowState, bool) {
	st := f.Snapshot()
	for _, r := range st.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return RowState{}, false
}

// AddRow appends a default row and collapses the others.
// It is refused at the row limit and while any row has an error.
func (f *Form) AddRow() (RowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return "", ErrClosed
	}
	if len(f.rows) >= f.maxRows {
		return "", ErrRowLimit
	}
	if !f.validLocked() {
		return "", ErrInvalidState
	}

	for _, r := range f.rows {
		r.draft.Expanded = false
	}

	r := newRow()
	f.rows = append(f.rows, r)
	logrus.Debugf("Added row %s (%d rows)", r.id, len(f.rows))

	f.markChangedLocked()
	return r.id, nil
}

// RemoveRow drops a row with its touched and error state.
// Unknown ids are ignored; the last remaining row cannot be removed.
func (f *Form) RemoveRow(id RowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return ErrClosed
	}

	i, r := f.findLocked(id)
	if r == nil {
		return nil
	}
	if len(f.rows) == 1 {
		return ErrLastRow
	}

	r.stopKeyTimer()
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	logrus.Debugf("Removed row %s (%d rows)", id, len(f.rows))

	f.markChangedLocked()
	return nil
}

// UpdateRow merges patch into the row. Any effective change clears verification.
func (f *Form) UpdateRow(id RowID, patch RowPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return ErrClosed
	}

	_, r := f.findLocked(id)
	if r == nil {
		return fmt.Errorf("unknown row %s", id)
	}

	next := r.draft.Clone()

	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.URL != nil {
		next.URL = *patch.URL
	}
	if patch.GPGKeyInput != nil {
		next.GPGKeyInput = *patch.GPGKeyInput
	}
	if patch.Expanded != nil {
		next.Expanded = *patch.Expanded
	}
	if patch.Architecture != nil {
		arch, err := f.resolveArch(*patch.Architecture)
		if err != nil {
			return err
		}
		next.Architecture = arch
	}
	if patch.Versions != nil {
		versions, err := f.normalizeVersions(patch.Versions)
		if err != nil {
			return err
		}
		next.Versions = versions
	}
	if patch.MetadataVerification != nil {
		if *patch.MetadataVerification && !signaturePresent(r.result) {
			return ErrMetadataUnsigned
		}
		next.MetadataVerification = *patch.MetadataVerification
		r.seedMetadata = false
	}

	if draftsEqual(r.draft, next) {
		return nil
	}

	keyChanged := next.GPGKeyInput != r.draft.GPGKeyInput
	r.draft = next

	if keyChanged {
		f.armKeyResolutionLocked(r)
	}
	f.markChangedLocked()
	return nil
}

// SetName sets the display name of a row
func (f *Form) SetName(id RowID, name string) error {
	return f.UpdateRow(id, RowPatch{Name: &name})
}

// SetURL sets the base URL of a row
func (f *Form) SetURL(id RowID, url string) error {
	return f.UpdateRow(id, RowPatch{URL: &url})
}

// SetGPGKeyInput sets the raw key input of a row, a URL or a literal key
func (f *Form) SetGPGKeyInput(id RowID, input string) error {
	return f.UpdateRow(id, RowPatch{GPGKeyInput: &input})
}

// SetArchitecture restricts a row to one architecture, by label or name
func (f *Form) SetArchitecture(id RowID, arch string) error {
	return f.UpdateRow(id, RowPatch{Architecture: &arch})
}

// SetVersions restricts a row to OS versions, by label or name.
// Selecting nothing, or "any" with anything else, selects "any".
func (f *Form) SetVersions(id RowID, versions []string) error {
	if versions == nil {
		versions = []string{}
	}
	return f.UpdateRow(id, RowPatch{Versions: versions})
}

// SetMetadataVerification chooses whether repository metadata is verified with the key
func (f *Form) SetMetadataVerification(id RowID, enabled bool) error {
	return f.UpdateRow(id, RowPatch{MetadataVerification: &enabled})
}

// ToggleExpand flips the expanded state of a row. Collapsing a row whose name
// and url were never touched marks both touched so their errors show.
func (f *Form) ToggleExpand(id RowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return ErrClosed
	}

	_, r := f.findLocked(id)
	if r == nil {
		return fmt.Errorf("unknown row %s", id)
	}

	collapsing := r.draft.Expanded
	r.draft.Expanded = !r.draft.Expanded
	if collapsing {
		forceTouch(r)
	}

	f.markChangedLocked()
	return nil
}

// ToggleExpandAll expands every row unless all are expanded, in which case it collapses them
func (f *Form) ToggleExpandAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return ErrClosed
	}

	allExpanded := true
	for _, r := range f.rows {
		if !r.draft.Expanded {
			allExpanded = false
			break
		}
	}

	for _, r := range f.rows {
		r.draft.Expanded = !allExpanded
	}
	if allExpanded {
		forceTouch(f.rows[len(f.rows)-1])
	}

	f.markChangedLocked()
	return nil
}

// FieldStatus reports how a field should be displayed
func (f *Form) FieldStatus(id RowID, field models.Field) FieldStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, r := f.findLocked(id)
	if r == nil {
		return StatusDefault
	}

	_, failing := r.errors[field]
	touched := r.touched.Get(field)
	switch {
	case failing && touched:
		return StatusError
	case r.draft.Value(field) != "" && touched:
		return StatusSuccess
	default:
		return StatusDefault
	}
}

// Touch marks a field as interacted with, as a focus or blur would
func (f *Form) Touch(id RowID, field models.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, r := f.findLocked(id); r != nil {
		r.touched = r.touched.Set(field, true)
		f.signalLocked()
	}
}

// forceTouch marks name and url touched when neither has been
func forceTouch(r *row) {
	if !r.touched.Name && !r.touched.URL {
		r.touched.Name = true
		r.touched.URL = true
	}
}

func (f *Form) validLocked() bool {
	for _, r := range f.rows {
		if len(r.errors) > 0 {
			return false
		}
	}
	return true
}

func signaturePresent(res *models.ValidationResult) bool {
	return res != nil && res.URL.MetadataSignaturePresent
}

func draftsEqual(a, b models.RepositoryDraft) bool {
	return equalStrings(a.Versions, b.Versions) &&
		a.Name == b.Name &&
		a.URL == b.URL &&
		a.GPGKeyInput == b.GPGKeyInput &&
		a.ResolvedGPGKey == b.ResolvedGPGKey &&
		a.Architecture == b.Architecture &&
		a.MetadataVerification == b.MetadataVerification &&
		a.Expanded == b.Expanded &&
		a.GPGLoading == b.GPGLoading
}
