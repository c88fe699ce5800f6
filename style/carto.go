package style

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// projectPlaceholder stands in for the temporary project file name in compile errors.
const projectPlaceholder = "<stylesheet>"

// Carto compiles Carto projects with the carto command line tool.
type Carto struct {
	// Command is the carto executable, looked up in PATH when it has no directory
	Command string
}

func (c Carto) command() string {
	if c.Command == "" {
		return "carto"
	}
	return c.Command
}

// Compile writes the source to a temporary project file in baseDir, so that relative
// paths resolve the same as for the original project, and runs carto on it.
func (c Carto) Compile(ctx context.Context, source string, baseDir string) (string, error) {
	executable, err := exec.LookPath(c.command())
	if err != nil {
		return "", errors.Wrapf(ErrCompilerUnavailable, "%s: %v", c.command(), err)
	}

	project, err := os.CreateTemp(baseDir, ".streamrender-*"+cartoExt)
	if err != nil {
		return "", errors.Wrap(err, "could not create temporary project file")
	}
	defer os.Remove(project.Name())
	if _, err = project.WriteString(source); err != nil {
		project.Close()
		return "", errors.Wrap(err, "could not write temporary project file")
	}
	if err = project.Close(); err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, executable, filepath.Base(project.Name()))
	cmd.Dir = baseDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug().Str("cmd", cmd.String()).Msg("compiling stylesheet")

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || (err == nil && strings.TrimSpace(stdout.String()) == "") {
		errs := parseErrors(strings.ReplaceAll(stderr.String(), filepath.Base(project.Name()), projectPlaceholder))
		if len(errs) == 0 {
			errs = CompileErrors{{Message: "carto produced no output"}}
		}
		return "", errs
	}
	if err != nil {
		return "", errors.Wrap(err, "could not run carto")
	}
	return stdout.String(), nil
}
