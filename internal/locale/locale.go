// Package locale serves widget message bundles from a directory of
// "<language>.json" files.
package locale

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/text/language"
)

// DefaultLanguage is tried when the requested language has no bundle.
const DefaultLanguage = "en"

var ErrLocaleNotFound = errors.New("locale not found")

// Base returns the language subtag of a BCP 47 tag ("en-US" -> "en"). An
// unparsable or empty tag yields "".
func Base(tag string) string {
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

type Loader interface {
	Load(language string) (map[string]string, error)
}

type dirLoader struct {
	dir string
}

func NewDirLoader(dir string) Loader {
	return &dirLoader{dir: dir}
}

func (l *dirLoader) Load(lang string) (map[string]string, error) {
	base := Base(lang)
	if base == "" {
		return nil, fmt.Errorf("language %q: %w", lang, ErrLocaleNotFound)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, base+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("language %q: %w", base, ErrLocaleNotFound)
		}
		return nil, fmt.Errorf("failed to read locale %s: %w", base, err)
	}
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode locale %s: %w", base, err)
	}
	return messages, nil
}
