package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// DisplaySpec is one output in a display layout file.
type DisplaySpec struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"`
}

// DisplayLayout is the content of DISPLAYS_FILE:
//
//	displays:
//	  - width: 1920
//	    height: 1080
//	    scale: 1
//	  - width: 2560
//	    height: 1440
//	    scale: 2
type DisplayLayout struct {
	Displays []DisplaySpec `yaml:"displays"`
}

var ErrNoDisplays = errors.New("display layout has no displays")

// Layout returns the displays to create: the layout file when configured,
// otherwise one display from the DISPLAY_* settings.
func (d DisplayConfig) Layout() (DisplayLayout, error) {
	if d.File == "" {
		return DisplayLayout{Displays: []DisplaySpec{{Width: d.Width, Height: d.Height, Scale: d.Scale}}}, nil
	}
	return LoadDisplayLayout(d.File)
}

// LoadDisplayLayout reads and validates a layout file.
func LoadDisplayLayout(path string) (DisplayLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DisplayLayout{}, fmt.Errorf("read display layout: %w", err)
	}
	return ParseDisplayLayout(data)
}

// ParseDisplayLayout decodes layout YAML. A missing scale defaults to 1.
func ParseDisplayLayout(data []byte) (DisplayLayout, error) {
	var layout DisplayLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return DisplayLayout{}, fmt.Errorf("parse display layout: %w", err)
	}
	if len(layout.Displays) == 0 {
		return DisplayLayout{}, ErrNoDisplays
	}
	for i := range layout.Displays {
		spec := &layout.Displays[i]
		if spec.Width <= 0 || spec.Height <= 0 {
			return DisplayLayout{}, fmt.Errorf("display %d: invalid size %dx%d", i, spec.Width, spec.Height)
		}
		if spec.Scale < 0 {
			return DisplayLayout{}, fmt.Errorf("display %d: negative scale", i)
		}
		if spec.Scale == 0 {
			spec.Scale = 1
		}
	}
	return layout, nil
}
