package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/repoadd/internal/models"
	"github.com/ralt/repoadd/internal/notify"
)

const keyURL = "https://example.com/RPM-GPG-KEY-EPEL-9"

func TestKeyURLIsResolved(t *testing.T) {
	key := armoredKey(t)
	started := make(chan struct{})
	release := make(chan struct{})

	backend := &fakeBackend{
		fetchHook: func(_ context.Context, url string) (string, error) {
			close(started)
			<-release
			return key, nil
		},
	}
	f, _ := newTestForm(t, backend)
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/9/")

	require.NoError(t, f.SetGPGKeyInput(id, keyURL))
	<-started

	row, _ := f.Row(id)
	assert.True(t, row.Draft.GPGLoading)
	assert.False(t, f.CanSubmit())

	close(release)
	settle(t, f)

	row, _ = f.Row(id)
	assert.Equal(t, key, row.Draft.ResolvedGPGKey)
	assert.Equal(t, keyURL, row.Draft.GPGKeyInput)
	assert.False(t, row.Draft.GPGLoading)
	assert.True(t, row.Touched.GPGKey)
	assert.Empty(t, row.Errors)
	assert.Equal(t, key, backend.lastValidation()[0].GPGKey)
	assert.True(t, f.CanSubmit())
}

func TestKeyInputTouchedBeforeFetchCompletes(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	backend := &fakeBackend{
		fetchHook: func(_ context.Context, url string) (string, error) {
			close(started)
			<-release
			return armoredKey(t), nil
		},
	}
	f, _ := newTestForm(t, backend)
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/9/")
	validations := backend.validationCount()

	require.NoError(t, f.SetGPGKeyInput(id, keyURL))
	<-started

	require.Eventually(t, func() bool {
		return backend.validationCount() > validations
	}, 5*time.Second, 5*time.Millisecond)

	row, _ := f.Row(id)
	assert.True(t, row.Draft.GPGLoading)
	assert.Empty(t, row.Draft.ResolvedGPGKey)
	assert.True(t, row.Touched.GPGKey)

	close(release)
	settle(t, f)
}

func TestKeyFetchFailureFallsBackToInput(t *testing.T) {
	backend := &fakeBackend{
		fetchHook: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("HTTP 404")
		},
	}
	f, rec := newTestForm(t, backend)
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/9/")

	require.NoError(t, f.SetGPGKeyInput(id, keyURL))
	settle(t, f)

	row, _ := f.Row(id)
	assert.Equal(t, keyURL, row.Draft.ResolvedGPGKey)
	assert.False(t, row.Draft.GPGLoading)
	assert.Equal(t, 1, rec.Count(notify.VariantWarning))
}

func TestLiteralKeyIsNotFetched(t *testing.T) {
	key := armoredKey(t)
	backend := &fakeBackend{}
	f, _ := newTestForm(t, backend)
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/9/")

	require.NoError(t, f.SetGPGKeyInput(id, key))
	settle(t, f)

	row, _ := f.Row(id)
	assert.Equal(t, key, row.Draft.ResolvedGPGKey)
	assert.Zero(t, backend.fetchCount())
	assert.Empty(t, row.Errors)
}

func TestKeyInputIsDebounced(t *testing.T) {
	key := armoredKey(t)
	backend := &fakeBackend{
		fetchHook: func(_ context.Context, _ string) (string, error) {
			return key, nil
		},
	}
	f, _ := newTestForm(t, backend, WithDebounce(50*time.Millisecond))
	id := firstRow(t, f)

	for _, partial := range []string{"https://ex", "https://example.com/RPM", keyURL} {
		require.NoError(t, f.SetGPGKeyInput(id, partial))
	}
	settle(t, f)

	assert.Equal(t, 1, backend.fetchCount())
	backend.mu.Lock()
	assert.Equal(t, keyURL, backend.fetchCalls[0])
	backend.mu.Unlock()
}

func TestKeyForRemovedRowIsDropped(t *testing.T) {
	key := armoredKey(t)
	started := make(chan struct{})
	release := make(chan struct{})

	backend := &fakeBackend{
		fetchHook: func(_ context.Context, _ string) (string, error) {
			close(started)
			<-release
			return key, nil
		},
	}
	f, _ := newTestForm(t, backend)
	first := firstRow(t, f)
	fillRow(t, f, first, "EPEL9", "https://example.com/9/")
	second, err := f.AddRow()
	require.NoError(t, err)

	require.NoError(t, f.SetGPGKeyInput(second, keyURL))
	<-started
	require.NoError(t, f.RemoveRow(second))
	close(release)
	settle(t, f)

	st := f.Snapshot()
	require.Len(t, st.Rows, 1)
	assert.Empty(t, st.Rows[0].Draft.ResolvedGPGKey)
	assert.Equal(t, 1, backend.fetchCount())
	assert.True(t, st.CanSubmit)
}

func TestKeySupersededByNewerInputIsDropped(t *testing.T) {
	fetched := armoredKey(t)
	typed := armoredKey(t)
	started := make(chan struct{})
	release := make(chan struct{})

	backend := &fakeBackend{
		fetchHook: func(_ context.Context, _ string) (string, error) {
			close(started)
			<-release
			return fetched, nil
		},
	}
	f, _ := newTestForm(t, backend)
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/9/")

	require.NoError(t, f.SetGPGKeyInput(id, keyURL))
	<-started
	require.NoError(t, f.SetGPGKeyInput(id, typed))
	close(release)
	settle(t, f)

	row, _ := f.Row(id)
	assert.Equal(t, typed, row.Draft.ResolvedGPGKey)
	assert.False(t, row.Draft.GPGLoading)
}

func TestKeySeedsMetadataVerification(t *testing.T) {
	tests := []struct {
		name string
		url  string
		hide bool
		want bool
	}{
		{name: "signed metadata", url: "https://example.com/signed/9/", want: true},
		{name: "unsigned metadata", url: "https://example.com/plain/9/", want: false},
		{name: "verification hidden", url: "https://example.com/signed/9/", hide: true, want: false},
	}

	key := armoredKey(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestForm(t, &fakeBackend{}, WithHidePackageVerification(tt.hide))
			id := firstRow(t, f)
			fillRow(t, f, id, "EPEL9", tt.url)

			require.NoError(t, f.SetGPGKeyInput(id, key))
			settle(t, f)

			row, _ := f.Row(id)
			assert.Equal(t, tt.want, row.Draft.MetadataVerification)
			assert.Equal(t, tt.want, row.Validation.URL.MetadataSignaturePresent && !tt.hide)
		})
	}
}

func TestKeyReplacementKeepsMetadataChoice(t *testing.T) {
	first := armoredKey(t)
	second := armoredKey(t)

	f, _ := newTestForm(t, &fakeBackend{})
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/signed/9/")

	require.NoError(t, f.SetGPGKeyInput(id, first))
	settle(t, f)
	require.NoError(t, f.SetMetadataVerification(id, false))
	settle(t, f)

	// Seeding only happens when the row had no key before.
	require.NoError(t, f.SetGPGKeyInput(id, second))
	settle(t, f)

	row, _ := f.Row(id)
	assert.Equal(t, second, row.Draft.ResolvedGPGKey)
	assert.False(t, row.Draft.MetadataVerification)
}

func TestClearingKey(t *testing.T) {
	key := armoredKey(t)
	f, _ := newTestForm(t, &fakeBackend{})
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/9/")

	require.NoError(t, f.SetGPGKeyInput(id, key))
	settle(t, f)
	require.NoError(t, f.SetGPGKeyInput(id, ""))
	settle(t, f)

	row, _ := f.Row(id)
	assert.Empty(t, row.Draft.ResolvedGPGKey)
	assert.NotContains(t, row.Errors, models.FieldGPGKey)
}

func TestKeySeedFollowsCurrentProbe(t *testing.T) {
	key := armoredKey(t)
	f, _ := newTestForm(t, &fakeBackend{})
	id := firstRow(t, f)

	// The only probe known when the key lands is the one of the empty row.
	name, url := "EPEL9", "https://example.com/signed/9/"
	require.NoError(t, f.UpdateRow(id, RowPatch{Name: &name, URL: &url, GPGKeyInput: &key}))
	settle(t, f)

	row, _ := f.Row(id)
	assert.True(t, row.Draft.MetadataVerification)
	assert.True(t, f.CanSubmit())
}
