package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		tag     string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" CSV ", FormatCSV, false},
		{"txt", FormatCSV, false},
		{"json", FormatJSON, false},
		{"spreadsheet", FormatSpreadsheet, false},
		{"xlsx", FormatSpreadsheet, false},
		{"xls", "", true},
		{"", "", true},
		{"parquet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseFormat(tt.tag)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"uids.csv", FormatCSV, false},
		{"UIDS.JSON", FormatJSON, false},
		{"export.xlsx", FormatSpreadsheet, false},
		{"list.txt", FormatCSV, false},
		{"legacy.xls", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromFilename(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
	}{
		{"json array", `[{"Uid":"a-1"},{"Uid":"b-2"}]`, FormatJSON},
		{"csv", "Uid,name\na-1,ann\nb-2,bob\n", FormatCSV},
		{"plain lines", "a-1\nb-2\n", FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormat_Binary(t *testing.T) {
	_, err := DetectFormat(strings.NewReader("\x00\x01\x02\x03\xff\xfe"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResolveFormat_SniffsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Uid":"a-1"}]`), 0o644))

	got, err := ResolveFormat("upload", path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)
}

func TestResolveFormat_PrefersExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool")
	require.NoError(t, os.WriteFile(path, []byte(`["a-1"]`), 0o644))

	got, err := ResolveFormat("ids.csv", path)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, got)
}
