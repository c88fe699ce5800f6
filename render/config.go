package render

import (
	"github.com/creasty/defaults"
	"github.com/pkg/errors"
)

// Config is the canvas and renderer setup of a Map.
type Config struct {
	// Width of the image in pixels
	Width uint `default:"600" validate:"min=1,max=16384"`
	// Height of the image in pixels
	Height uint `default:"400" validate:"min=1,max=16384"`
	// ScaleFactor scales symbol sizes, eg 2 for high dpi output
	ScaleFactor float64 `default:"1" validate:"gt=0"`
	// Command is the renderer executable
	Command string `default:"mapnik-render" validate:"required"`
	// Pagesize is how many spooled features are written per transaction
	Pagesize int `default:"1000" validate:"min=1"`
}

// NewConfig returns a Config with all defaults set.
func NewConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Validate fills in defaults for zero fields and checks the result.
func (cfg *Config) Validate() error {
	if err := defaults.Set(cfg); err != nil {
		return err
	}
	return errors.Wrap(validate.Struct(cfg), "invalid render config")
}
