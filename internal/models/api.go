package models

// ValidationRequest is one row of a batched validation call
type ValidationRequest struct {
	Name                 string `json:"name"`
	URL                  string `json:"url"`
	GPGKey               string `json:"gpg_key"`
	MetadataVerification bool   `json:"metadata_verification"`
}

// AttributeValidation is the server verdict for a single attribute
type AttributeValidation struct {
	Skipped bool   `json:"skipped"` // attribute was not sent
	Valid   bool   `json:"valid"`
	Error   string `json:"error"`
}

// Failed reports whether the attribute was checked and rejected
func (a AttributeValidation) Failed() bool {
	return !a.Skipped && !a.Valid
}

// URLValidation extends AttributeValidation with the metadata probe results
type URLValidation struct {
	Skipped                  bool   `json:"skipped"`
	Valid                    bool   `json:"valid"`
	Error                    string `json:"error"`
	HTTPCode                 int    `json:"http_code"`
	MetadataPresent          bool   `json:"metadata_present"`
	MetadataSignaturePresent bool   `json:"metadata_signature_present"`
}

// Failed reports whether the URL was checked and rejected
func (u URLValidation) Failed() bool {
	return !u.Skipped && !u.Valid
}

// ValidationResult is the server verdict for one row
type ValidationResult struct {
	Name   AttributeValidation `json:"name"`
	URL    URLValidation       `json:"url"`
	GPGKey AttributeValidation `json:"gpg_key"`
}

// FetchGPGKeyRequest asks the service to download a key
type FetchGPGKeyRequest struct {
	URL string `json:"url"`
}

// FetchGPGKeyResponse carries the downloaded key material
type FetchGPGKeyResponse struct {
	GPGKey string `json:"gpg_key"`
}

// RepositoryRequest is the create payload for a single repository
type RepositoryRequest struct {
	Name                 string   `json:"name"`
	URL                  string   `json:"url"`
	DistributionArch     string   `json:"distribution_arch,omitempty"`
	DistributionVersions []string `json:"distribution_versions,omitempty"`
	GPGKey               string   `json:"gpg_key,omitempty"`
	MetadataVerification bool     `json:"metadata_verification"`
}

// Repository is a repository as reported by the service
type Repository struct {
	UUID                      string   `json:"uuid"`
	Name                      string   `json:"name"`
	URL                       string   `json:"url"`
	DistributionArch          string   `json:"distribution_arch"`
	DistributionVersions      []string `json:"distribution_versions"`
	GPGKey                    string   `json:"gpg_key"`
	MetadataVerification      bool     `json:"metadata_verification"`
	PackageCount              int      `json:"package_count"`
	Status                    string   `json:"status"`
	LastIntrospectionTime     string   `json:"last_introspection_time"`
	LastIntrospectionError    string   `json:"last_introspection_error"`
	FailedIntrospectionsCount int      `json:"failed_introspections_count"`
}

// RepositoryCollection is a page of repositories
type RepositoryCollection struct {
	Data []Repository `json:"data"`
	Meta struct {
		Count  int `json:"count"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"meta"`
}

// ToRepositoryRequest maps a draft to the create payload.
// "any" restrictions are sent as-is since the service understands the sentinel.
func (d RepositoryDraft) ToRepositoryRequest() RepositoryRequest {
	return RepositoryRequest{
		Name:                 d.Name,
		URL:                  d.URL,
		DistributionArch:     d.Architecture,
		DistributionVersions: append([]string(nil), d.Versions...),
		GPGKey:               d.ResolvedGPGKey,
		MetadataVerification: d.MetadataVerification,
	}
}

// ToValidationRequest maps a draft to the validation payload
func (d RepositoryDraft) ToValidationRequest() ValidationRequest {
	return ValidationRequest{
		Name:                 d.Name,
		URL:                  d.URL,
		GPGKey:               d.ResolvedGPGKey,
		MetadataVerification: d.MetadataVerification,
	}
}
