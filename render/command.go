package render

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Job is one render of an XML stylesheet to an image file.
type Job struct {
	Style       string
	Output      string
	Format      Format
	Width       uint
	Height      uint
	ScaleFactor float64
}

// Renderer draws a stylesheet into an image.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// Command renders with the mapnik-render command line tool.
type Command struct {
	Path string
}

func (c Command) args(job Job) []string {
	return []string{
		"--xml=" + job.Style,
		"--img=" + job.Output,
		"--map-width=" + strconv.FormatUint(uint64(job.Width), 10),
		"--map-height=" + strconv.FormatUint(uint64(job.Height), 10),
		"--scale-factor=" + strconv.FormatFloat(job.ScaleFactor, 'f', -1, 64),
	}
}

func (c Command) Render(ctx context.Context, job Job) error {
	executable, err := exec.LookPath(c.Path)
	if err != nil {
		return errors.Wrap(err, "renderer not found")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, executable, c.args(job)...)
	cmd.Stderr = &stderr
	log.Debug().Str("cmd", cmd.String()).Msg("rendering")

	if err = cmd.Run(); err != nil {
		return errors.Wrapf(err, "rendering %s failed: %s", job.Output, strings.TrimSpace(stderr.String()))
	}
	if _, err = os.Stat(job.Output); err != nil {
		return errors.Wrapf(err, "renderer did not write %s", job.Output)
	}
	return nil
}
