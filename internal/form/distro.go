package form

import (
	"fmt"
	"strings"

	"github.com/ralt/repoadd/internal/gpgkey"
	"github.com/ralt/repoadd/internal/models"
)

func (f *Form) resolveArch(value string) (string, error) {
	if value == "" || value == models.AnyValue {
		return models.AnyValue, nil
	}
	label, ok := f.params.ArchLabel(value)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownArchitecture, value)
	}
	return label, nil
}

// normalizeVersions maps a selection to labels and collapses it to ["any"]
// when it is empty or contains "any"
func (f *Form) normalizeVersions(values []string) ([]string, error) {
	labels := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		if v == models.AnyValue {
			return []string{models.AnyValue}, nil
		}
		label, ok := f.params.VersionLabel(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, v)
		}
		if label == models.AnyValue {
			return []string{models.AnyValue}, nil
		}
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}

	if len(labels) == 0 {
		return []string{models.AnyValue}, nil
	}
	return labels, nil
}

// InferDistribution fills an unrestricted architecture or version from the
// row's URL, e.g. ".../epel/9/Everything/x86_64/" selects x86_64 and 9.
// Explicit selections are kept. It is meant to run when URL editing ends.
func (f *Form) InferDistribution(id RowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return ErrClosed
	}

	_, r := f.findLocked(id)
	if r == nil {
		return fmt.Errorf("unknown row %s", id)
	}

	url := r.draft.URL
	archIsAny := r.draft.Architecture == models.AnyValue
	versionsAreAny := len(r.draft.Versions) == 0 || r.draft.Versions[0] == models.AnyValue
	if !gpgkey.IsURL(url) || (!archIsAny && !versionsAreAny) {
		return nil
	}

	arch := r.draft.Architecture
	if archIsAny {
		arch = matchOption(f.params.DistributionArches, func(o models.DistributionOption) bool {
			return strings.Contains(url, o.Name) || strings.Contains(url, o.Label)
		})
	}

	versions := r.draft.Versions
	if versionsAreAny {
		versions = []string{matchOption(f.params.DistributionVersions, func(o models.DistributionOption) bool {
			return strings.Contains(url, o.Name) || strings.Contains(url, "/"+o.Label)
		})}
	}

	if arch == r.draft.Architecture && equalStrings(versions, r.draft.Versions) {
		return nil
	}

	r.draft.Architecture = arch
	r.draft.Versions = versions
	f.markChangedLocked()
	return nil
}

// matchOption returns the label of the first concrete option accepted by match, or "any"
func matchOption(opts []models.DistributionOption, match func(models.DistributionOption) bool) string {
	for _, o := range opts {
		if o.Label == models.AnyValue || o.Label == "" {
			continue
		}
		if match(o) {
			return o.Label
		}
	}
	return models.AnyValue
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
