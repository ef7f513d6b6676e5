package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/repoadd/internal/models"
)

func TestSetVersions(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []string
		wantErr error
	}{
		{name: "nothing selected", input: nil, want: []string{"any"}},
		{name: "any alone", input: []string{"any"}, want: []string{"any"}},
		{name: "any with others", input: []string{"9", "any"}, want: []string{"any"}},
		{name: "any first", input: []string{"any", "8"}, want: []string{"any"}},
		{name: "labels", input: []string{"8", "9"}, want: []string{"8", "9"}},
		{name: "names map to labels", input: []string{"el7", "9"}, want: []string{"7", "9"}},
		{name: "duplicates collapse", input: []string{"9", "el9"}, want: []string{"9"}},
		{name: "unknown", input: []string{"10"}, wantErr: ErrUnknownVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestForm(t, &fakeBackend{})
			id := firstRow(t, f)

			err := f.SetVersions(id, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			row, _ := f.Row(id)
			assert.Equal(t, tt.want, row.Draft.Versions)
		})
	}
}

func TestSetArchitecture(t *testing.T) {
	f, _ := newTestForm(t, &fakeBackend{})
	id := firstRow(t, f)

	require.NoError(t, f.SetArchitecture(id, "aarch64"))
	row, _ := f.Row(id)
	assert.Equal(t, "aarch64", row.Draft.Architecture)

	require.NoError(t, f.SetArchitecture(id, "Any architecture"))
	row, _ = f.Row(id)
	assert.Equal(t, models.AnyValue, row.Draft.Architecture)

	assert.ErrorIs(t, f.SetArchitecture(id, "riscv64"), ErrUnknownArchitecture)
}

func TestInferDistribution(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		arch         string
		versions     []string
		wantArch     string
		wantVersions []string
	}{
		{
			name:         "epel layout",
			url:          "https://download-i2.fedoraproject.org/pub/epel/9/Everything/x86_64/",
			wantArch:     "x86_64",
			wantVersions: []string{"9"},
		},
		{
			name:         "el name in path",
			url:          "https://example.com/repos/el8/aarch64/",
			wantArch:     "aarch64",
			wantVersions: []string{"8"},
		},
		{
			name:         "nothing recognizable",
			url:          "https://example/repo",
			wantArch:     "any",
			wantVersions: []string{"any"},
		},
		{
			name:         "explicit architecture kept",
			url:          "https://example.com/epel/7/x86_64/",
			arch:         "s390x",
			wantArch:     "s390x",
			wantVersions: []string{"7"},
		},
		{
			name:         "explicit versions kept",
			url:          "https://example.com/epel/7/ppc64le/",
			versions:     []string{"8", "9"},
			wantArch:     "ppc64le",
			wantVersions: []string{"8", "9"},
		},
		{
			name:         "invalid url ignored",
			url:          "example.com/epel/9/x86_64",
			wantArch:     "any",
			wantVersions: []string{"any"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestForm(t, &fakeBackend{})
			id := firstRow(t, f)

			patch := RowPatch{URL: &tt.url}
			if tt.arch != "" {
				patch.Architecture = &tt.arch
			}
			if tt.versions != nil {
				patch.Versions = tt.versions
			}
			require.NoError(t, f.UpdateRow(id, patch))
			require.NoError(t, f.InferDistribution(id))

			row, _ := f.Row(id)
			assert.Equal(t, tt.wantArch, row.Draft.Architecture)
			assert.Equal(t, tt.wantVersions, row.Draft.Versions)
		})
	}
}

func TestInferDistributionClearsVerification(t *testing.T) {
	f, _ := newTestForm(t, &fakeBackend{})
	id := firstRow(t, f)
	fillRow(t, f, id, "EPEL9", "https://example.com/epel/9/x86_64/")
	require.True(t, f.Snapshot().ChangeVerified)

	require.NoError(t, f.InferDistribution(id))
	assert.False(t, f.Snapshot().ChangeVerified)

	settle(t, f)
	assert.True(t, f.CanSubmit())
}
