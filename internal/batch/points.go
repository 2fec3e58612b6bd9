package batch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tejusbharadwaj/wateruse/internal/models"
)

type pointsFile struct {
	Points []string `yaml:"points"`
}

// LoadPoints reads the list of monitored points from a YAML file of the form
//
//	points:
//	  - J36/0016-M1
//	  - L35/0001-M1
//
// Blank and repeated entries are dropped. A missing file returns os.ErrNotExist.
func LoadPoints(path string) ([]models.MonitoredPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read points file: %w", err)
	}

	var f pointsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse points file: %w", err)
	}

	seen := make(map[string]bool, len(f.Points))
	points := make([]models.MonitoredPoint, 0, len(f.Points))
	for _, p := range f.Points {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		points = append(points, models.MonitoredPoint(p))
	}

	if len(points) == 0 {
		return nil, errors.New("points file lists no points")
	}
	return points, nil
}
