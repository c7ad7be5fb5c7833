package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en-US", "en"},
		{"fr", "fr"},
		{"pt-BR", "pt"},
		{"", ""},
		{"not a tag!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, Base(tt.tag))
		})
	}
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"title":"Top Platforms"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zu.json"), []byte(`{broken`), 0o644))
	loader := NewDirLoader(dir)

	t.Run("region is dropped", func(t *testing.T) {
		msgs, err := loader.Load("en-GB")
		require.NoError(t, err)
		assert.Equal(t, "Top Platforms", msgs["title"])
	})

	t.Run("missing bundle", func(t *testing.T) {
		_, err := loader.Load("de")
		assert.ErrorIs(t, err, ErrLocaleNotFound)
	})

	t.Run("corrupt bundle", func(t *testing.T) {
		_, err := loader.Load("zu")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrLocaleNotFound)
	})
}
