package widgetconf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `{
  "id": "APIMTopPlatforms",
  "name": "APIM Top Platforms",
  "configs": {
    "providerConfig": {
      "type": "timescaledb",
      "config": {
        "queryData": {
          "queries": {
            "apilistquery": "SELECT DISTINCT api_name, api_version, api_creator FROM api_request_events",
            "mainquery": "SELECT platform, COUNT(*) FROM api_request_events GROUP BY platform LIMIT {{limit}}::int"
          }
        },
        "publishingInterval": 60
      }
    }
  }
}`

func TestFileWidgetConfigRepository(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "APIMTopPlatforms.json"), []byte(validConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.json"), []byte(`{"id":"Broken","configs":{"providerConfig":{"type":"siddhi"}}}`), 0o644))
	repo := NewFileWidgetConfigRepository(dir)

	t.Run("found", func(t *testing.T) {
		cfg, err := repo.GetWidgetConfiguration(context.Background(), "APIMTopPlatforms")
		require.NoError(t, err)
		assert.Equal(t, "timescaledb", cfg.Configs.ProviderConfig.Type)
		assert.Equal(t, 60, cfg.Configs.ProviderConfig.Config.PublishingInterval)
		assert.Contains(t, cfg.Configs.ProviderConfig.Config.QueryData.Queries, model.MainQueryName)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetWidgetConfiguration(context.Background(), "Nope")
		assert.ErrorIs(t, err, repository.ErrWidgetConfigNotFound)
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := repo.GetWidgetConfiguration(context.Background(), "../etc/passwd")
		assert.ErrorIs(t, err, repository.ErrWidgetConfigNotFound)
	})

	t.Run("invalid provider type", func(t *testing.T) {
		_, err := repo.GetWidgetConfiguration(context.Background(), "Broken")
		require.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrWidgetConfigNotFound)
	})
}
