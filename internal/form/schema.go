package form

import (
	"strings"

	"github.com/ralt/repoadd/internal/gpgkey"
	"github.com/ralt/repoadd/internal/models"
)

const maxNameLength = 255

// localErrors runs the shape checks that need no server round trip
func localErrors(d models.RepositoryDraft) models.FieldErrors {
	errs := models.FieldErrors{}

	name := strings.TrimSpace(d.Name)
	switch {
	case name == "":
		errs[models.FieldName] = "Required"
	case len(name) > maxNameLength:
		errs[models.FieldName] = "Too long"
	}

	url := strings.TrimSpace(d.URL)
	switch {
	case url == "":
		errs[models.FieldURL] = "Required"
	case !gpgkey.IsURL(url):
		errs[models.FieldURL] = "Invalid URL"
	}

	// The key is optional; when set it must be a URL or parseable key material.
	key := strings.TrimSpace(d.ResolvedGPGKey)
	if key != "" && !gpgkey.IsURL(key) {
		if err := gpgkey.Validate(key); err != nil {
			errs[models.FieldGPGKey] = "Invalid GPG key"
		}
	}

	return errs
}

// serverErrors extracts the failing fields of a validation result
func serverErrors(res models.ValidationResult) models.FieldErrors {
	errs := models.FieldErrors{}

	if res.Name.Failed() {
		errs[models.FieldName] = messageOr(res.Name.Error, "Invalid name")
	}
	if res.URL.Failed() {
		errs[models.FieldURL] = messageOr(res.URL.Error, "Invalid URL")
	}
	if res.GPGKey.Failed() {
		errs[models.FieldGPGKey] = messageOr(res.GPGKey.Error, "Invalid GPG key")
	}

	return errs
}

// mergeErrors is the union of failing fields; local messages win on overlap
func mergeErrors(local, server models.FieldErrors) models.FieldErrors {
	out := server.Clone()
	for field, msg := range local {
		out[field] = msg
	}
	return out
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
