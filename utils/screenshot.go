package utils

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/fingerprint"
	"go-jobwatch/internal/models"
)

// DiffDebugger dumps the screenshots behind a detected change so a human can
// see what the comparison saw
type DiffDebugger struct {
	outputDir string
	logger    zerolog.Logger
	now       func() time.Time
}

func NewDiffDebugger(dir string, logger zerolog.Logger) (*DiffDebugger, error) {
	if dir == "" {
		dir = filepath.Join(".", "logs", "debug")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create debug dir: %w", err)
	}
	return &DiffDebugger{
		outputDir: dir,
		logger:    logger.With().Str("component", "debug").Logger(),
		now:       time.Now,
	}, nil
}

// SaveComparison writes previous, current and difference images and returns
// their paths. diff may be nil, it is then recomputed.
func (d *DiffDebugger) SaveComparison(targetName string, prior, current []byte, diff *image.Gray) ([]string, error) {
	if diff == nil {
		_, gray, err := fingerprint.CompareImages(prior, current)
		if err != nil {
			return nil, err
		}
		diff = gray
	}
	diffPNG, err := fingerprint.EncodePNG(amplify(diff))
	if err != nil {
		return nil, err
	}

	timestamp := d.now().Format("2006-01-02_15-04-05")
	base := fmt.Sprintf("%s_%s", models.Slugify(targetName), timestamp)

	files := []struct {
		suffix string
		data   []byte
	}{
		{"previous", prior},
		{"current", current},
		{"diff", diffPNG},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(d.outputDir, fmt.Sprintf("%s_%s.png", base, f.suffix))
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	d.logger.Info().Str("target", targetName).Str("diff", paths[2]).Msg("💾 Saved debug difference image")
	return paths, nil
}

// amplify turns every changed pixel white so faint differences are visible
func amplify(src *image.Gray) *image.Gray {
	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if v > 0 {
			out.Pix[i] = 255
		}
	}
	return out
}
