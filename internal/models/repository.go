package models

// AnyValue is the sentinel for an unrestricted architecture or version
const AnyValue = "any"

// Field identifies a user-editable field of a draft that carries touched and error state
type Field string

const (
	FieldName   Field = "name"
	FieldURL    Field = "url"
	FieldGPGKey Field = "gpgKey"
)

// Fields lists every tracked field in display order
var Fields = []Field{FieldName, FieldURL, FieldGPGKey}

// RepositoryDraft is a single in-progress repository entry that has not been created yet
type RepositoryDraft struct {
	Name string
	URL  string

	// GPGKeyInput is the raw user input, either a URL or a literal key block
	GPGKeyInput string
	// ResolvedGPGKey is the literal key material sent to the service
	ResolvedGPGKey string

	Architecture         string
	Versions             []string
	MetadataVerification bool

	// UI state
	Expanded   bool
	GPGLoading bool
}

// NewRepositoryDraft returns a draft with the default values of a fresh row
func NewRepositoryDraft() RepositoryDraft {
	return RepositoryDraft{
		Architecture: AnyValue,
		Versions:     []string{AnyValue},
		Expanded:     true,
	}
}

// Clone returns a deep copy of the draft
func (d RepositoryDraft) Clone() RepositoryDraft {
	d.Versions = append([]string(nil), d.Versions...)
	return d
}

// Value returns the current value of a tracked field.
// The gpgKey field reports the raw input, a URL or a literal key.
func (d RepositoryDraft) Value(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldURL:
		return d.URL
	case FieldGPGKey:
		return d.GPGKeyInput
	default:
		return ""
	}
}

// FieldFlags records which fields have been interacted with
type FieldFlags struct {
	Name   bool
	URL    bool
	GPGKey bool
}

// Get reports the flag for a field
func (f FieldFlags) Get(field Field) bool {
	switch field {
	case FieldName:
		return f.Name
	case FieldURL:
		return f.URL
	case FieldGPGKey:
		return f.GPGKey
	default:
		return false
	}
}

// Set returns a copy with the flag for field set to v
func (f FieldFlags) Set(field Field, v bool) FieldFlags {
	switch field {
	case FieldName:
		f.Name = v
	case FieldURL:
		f.URL = v
	case FieldGPGKey:
		f.GPGKey = v
	}
	return f
}

// FieldErrors maps failing fields to a human readable message
type FieldErrors map[Field]string

// Clone returns a copy of the error map
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// DistributionOption is one selectable architecture or OS version
type DistributionOption struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// RepositoryParams holds the architectures and versions supported by the service
type RepositoryParams struct {
	DistributionVersions []DistributionOption `json:"distribution_versions"`
	DistributionArches   []DistributionOption `json:"distribution_arches"`
}

// ArchLabel finds an architecture by label, then by name, and returns its label
func (p RepositoryParams) ArchLabel(value string) (string, bool) {
	return lookupLabel(p.DistributionArches, value)
}

// VersionLabel finds an OS version by label, then by name, and returns its label
func (p RepositoryParams) VersionLabel(value string) (string, bool) {
	return lookupLabel(p.DistributionVersions, value)
}

func lookupLabel(opts []DistributionOption, value string) (string, bool) {
	for _, o := range opts {
		if o.Label == value {
			return o.Label, true
		}
	}
	for _, o := range opts {
		if o.Name == value {
			return o.Label, true
		}
	}
	return "", false
}
