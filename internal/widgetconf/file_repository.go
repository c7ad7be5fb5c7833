package widgetconf

import (
	"apim-analytics-backend/internal/model"
	"apim-analytics-backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"
)

var widgetIDRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

type fileWidgetConfigRepository struct {
	dir string
}

// NewFileWidgetConfigRepository reads "<dir>/<widgetID>.json".
func NewFileWidgetConfigRepository(dir string) repository.WidgetConfigRepository {
	return &fileWidgetConfigRepository{dir: dir}
}

func (r *fileWidgetConfigRepository) GetWidgetConfiguration(ctx context.Context, widgetID string) (*model.WidgetConfiguration, error) {
	if !widgetIDRegex.MatchString(widgetID) {
		return nil, fmt.Errorf("widget %q: %w", widgetID, repository.ErrWidgetConfigNotFound)
	}
	path := filepath.Join(r.dir, widgetID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("widget %q: %w", widgetID, repository.ErrWidgetConfigNotFound)
		}
		log.Error().Err(err).Str("file", path).Msg("Failed to read widget configuration")
		return nil, fmt.Errorf("failed to read widget configuration %s: %w", widgetID, err)
	}
	return Decode(data)
}
