// Package style turns Carto (.mml) projects into the renderer's XML stylesheets.
// The compilation itself is done by an external compiler.
package style

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	cartoExt = ".mml"
	xmlExt   = ".xml"
)

// Compiler compiles stylesheet source into renderer XML.
// Relative resources in the source are resolved against baseDir.
// A failed compilation is reported as CompileErrors.
type Compiler interface {
	Compile(ctx context.Context, source string, baseDir string) (string, error)
}

// NeedsCompile reports whether the stylesheet is a Carto project.
func NeedsCompile(stylesheet string) bool {
	return strings.EqualFold(filepath.Ext(stylesheet), cartoExt)
}

// SiblingPath is where the compiled XML of a stylesheet is written: same directory and name, .xml extension.
func SiblingPath(stylesheet string) string {
	return strings.TrimSuffix(stylesheet, filepath.Ext(stylesheet)) + xmlExt
}

// CompileFile compiles a stylesheet file, writes the result next to it and returns the path of the result.
func CompileFile(ctx context.Context, compiler Compiler, stylesheet string) (string, error) {
	source, err := os.ReadFile(stylesheet)
	if err != nil {
		return "", errors.Wrap(err, "could not read stylesheet")
	}
	compiled, err := compiler.Compile(ctx, string(source), filepath.Dir(stylesheet))
	var errs CompileErrors
	if errors.As(err, &errs) {
		for i := range errs {
			if errs[i].Filename == projectPlaceholder {
				errs[i].Filename = stylesheet
			}
		}
		return "", errs
	}
	if err != nil {
		return "", err
	}
	target := SiblingPath(stylesheet)
	if err = os.WriteFile(target, []byte(compiled), 0o644); err != nil {
		return "", errors.Wrap(err, "could not write compiled stylesheet")
	}
	log.Debug().Str("stylesheet", stylesheet).Str("compiled", target).Msg("compiled stylesheet")
	return target, nil
}
