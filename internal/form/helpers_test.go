package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/stretchr/testify/require"

	"github.com/ralt/repoadd/internal/gpgkey"
	"github.com/ralt/repoadd/internal/models"
	"github.com/ralt/repoadd/internal/notify"
)

var testParams = models.RepositoryParams{
	DistributionVersions: []models.DistributionOption{
		{Name: "Any OS version", Label: "any"},
		{Name: "el7", Label: "7"},
		{Name: "el8", Label: "8"},
		{Name: "el9", Label: "9"},
	},
	DistributionArches: []models.DistributionOption{
		{Name: "Any architecture", Label: "any"},
		{Name: "x86_64", Label: "x86_64"},
		{Name: "s390x", Label: "s390x"},
		{Name: "ppc64le", Label: "ppc64le"},
		{Name: "aarch64", Label: "aarch64"},
	},
}

// fakeBackend answers like the service: names and URLs are checked for
// presence, URLs containing "broken" are unreachable, and URLs containing
// "signed" report signed metadata. Hooks override each call.
type fakeBackend struct {
	mu sync.Mutex

	validateCalls [][]models.ValidationRequest
	fetchCalls    []string
	createCalls   []models.RepositoryRequest

	validateHook func(call int, rows []models.ValidationRequest) ([]models.ValidationResult, error)
	fetchHook    func(ctx context.Context, url string) (string, error)
	createHook   func(req models.RepositoryRequest) error
}

func (b *fakeBackend) ValidateContentList(_ context.Context, rows []models.ValidationRequest) ([]models.ValidationResult, error) {
	b.mu.Lock()
	b.validateCalls = append(b.validateCalls, rows)
	call := len(b.validateCalls)
	hook := b.validateHook
	b.mu.Unlock()

	if hook != nil {
		return hook(call, rows)
	}
	return passingResults(rows), nil
}

func (b *fakeBackend) FetchGPGKey(ctx context.Context, url string) (string, error) {
	b.mu.Lock()
	b.fetchCalls = append(b.fetchCalls, url)
	hook := b.fetchHook
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, url)
	}
	return "", errors.New("no key published")
}

func (b *fakeBackend) CreateRepository(_ context.Context, req models.RepositoryRequest) (*models.Repository, error) {
	b.mu.Lock()
	b.createCalls = append(b.createCalls, req)
	hook := b.createHook
	b.mu.Unlock()

	if hook != nil {
		if err := hook(req); err != nil {
			return nil, err
		}
	}
	return &models.Repository{UUID: "uuid-" + req.Name, Name: req.Name, URL: req.URL}, nil
}

func (b *fakeBackend) lastValidation() []models.ValidationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.validateCalls) == 0 {
		return nil
	}
	return b.validateCalls[len(b.validateCalls)-1]
}

func (b *fakeBackend) validationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.validateCalls)
}

func (b *fakeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fetchCalls)
}

func (b *fakeBackend) createCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.createCalls)
}

func passingResults(rows []models.ValidationRequest) []models.ValidationResult {
	results := make([]models.ValidationResult, len(rows))
	for i, r := range rows {
		res := models.ValidationResult{
			Name:   models.AttributeValidation{Valid: true},
			GPGKey: models.AttributeValidation{Skipped: r.GPGKey == "", Valid: r.GPGKey != ""},
			URL: models.URLValidation{
				Valid:                    true,
				HTTPCode:                 200,
				MetadataPresent:          true,
				MetadataSignaturePresent: strings.Contains(r.URL, "signed"),
			},
		}
		if r.Name == "" {
			res.Name = models.AttributeValidation{Valid: false, Error: "Name cannot be blank"}
		}
		switch {
		case r.URL == "":
			res.URL = models.URLValidation{Valid: false, Error: "URL cannot be blank"}
		case strings.Contains(r.URL, "broken"):
			res.URL = models.URLValidation{Valid: false, Error: "Error fetching YUM metadata: HTTP 404", HTTPCode: 404}
		}
		results[i] = res
	}
	return results
}

func newTestForm(t *testing.T, backend *fakeBackend, opts ...Option) (*Form, *notify.Recorder) {
	t.Helper()

	rec := notify.NewRecorder(nil)
	opts = append([]Option{WithDebounce(5 * time.Millisecond)}, opts...)
	f := New(backend, rec, testParams, opts...)
	f.Open()
	t.Cleanup(f.Close)

	settle(t, f)
	return f, rec
}

func settle(t *testing.T, f *Form) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.WaitSettled(ctx))
}

// fillRow makes a row valid and waits for it to be verified
func fillRow(t *testing.T, f *Form, id RowID, name, url string) {
	t.Helper()

	require.NoError(t, f.UpdateRow(id, RowPatch{Name: &name, URL: &url}))
	settle(t, f)
}

func firstRow(t *testing.T, f *Form) RowID {
	t.Helper()

	id, ok := f.RowAt(0)
	require.True(t, ok)
	return id
}

func armoredKey(t *testing.T) string {
	t.Helper()

	entity, err := openpgp.NewEntity("EPEL", "test", "epel@example.com", nil)
	require.NoError(t, err)
	armored, err := gpgkey.Armor(entity)
	require.NoError(t, err)
	return armored
}
