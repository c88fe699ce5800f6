package main

import (
	"context"
	"fmt"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/pdok/streamrender/render"
	"github.com/pdok/streamrender/style"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const WIDTH string = `width`
const HEIGHT string = `height`
const SCALEFACTOR string = `scaleFactor`
const RENDERER string = `renderer`
const CARTO string = `carto`
const NOOPEN string = `noOpen`
const VERBOSE string = `verbose`

const usage = `usage: streamrender <stylesheet> <image>`

// errorWidth is where compile errors are wrapped
const errorWidth = 100

// runner holds the external collaborators, nil means the real thing.
type runner struct {
	renderer render.Renderer
	compiler style.Compiler
	opener   func(ctx context.Context, path string) error
}

func main() {
	app := newApp(&runner{})
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("streamrender failed")
	}
}

//nolint:funlen
func newApp(r *runner) *cli.App {
	app := cli.NewApp()
	app.Name = "streamrender"
	app.Usage = "Render a (Carto or XML) stylesheet to an image with mapnik-render"
	app.ArgsUsage = "<stylesheet> <image>"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.UintFlag{
			Name:    WIDTH,
			Aliases: []string{"W"},
			Usage:   "Width of the image in pixels",
			Value:   600,
			EnvVars: []string{strcase.ToScreamingSnake(WIDTH)},
		},
		&cli.UintFlag{
			Name:    HEIGHT,
			Aliases: []string{"H"},
			Usage:   "Height of the image in pixels",
			Value:   400,
			EnvVars: []string{strcase.ToScreamingSnake(HEIGHT)},
		},
		&cli.Float64Flag{
			Name:    SCALEFACTOR,
			Usage:   "Scale factor for symbol sizes, e.g. 2 for high dpi images",
			Value:   1,
			EnvVars: []string{strcase.ToScreamingSnake(SCALEFACTOR)},
		},
		&cli.StringFlag{
			Name:    RENDERER,
			Usage:   "The mapnik-render executable",
			Value:   "mapnik-render",
			EnvVars: []string{strcase.ToScreamingSnake(RENDERER)},
		},
		&cli.StringFlag{
			Name:    CARTO,
			Usage:   "The carto executable, used for .mml stylesheets",
			Value:   "carto",
			EnvVars: []string{strcase.ToScreamingSnake(CARTO)},
		},
		&cli.BoolFlag{
			Name:    NOOPEN,
			Usage:   "Do not open the image in the system viewer",
			EnvVars: []string{strcase.ToScreamingSnake(NOOPEN)},
		},
		&cli.BoolFlag{
			Name:    VERBOSE,
			Usage:   "Log every streamed feature",
			EnvVars: []string{strcase.ToScreamingSnake(VERBOSE)},
		},
	}

	app.Before = func(c *cli.Context) error {
		setupLogging(c.App.ErrWriter, c.Bool(VERBOSE))
		return nil
	}

	app.Commands = []*cli.Command{streamCommand(r)}

	app.Action = func(c *cli.Context) error {
		stylesheet, image, err := positionalArgs(c)
		if err != nil {
			return err
		}
		m, err := r.loadMap(c, stylesheet)
		if err != nil {
			return err
		}
		m.ZoomAll()
		return r.renderAndOpen(c, m, image)
	}
	return app
}

// positionalArgs returns <stylesheet> <image>, or prints the usage and exits 1 when one is missing.
func positionalArgs(c *cli.Context) (stylesheet, image string, err error) {
	stylesheet = c.Args().Get(0)
	image = c.Args().Get(1)
	if stylesheet == "" || image == "" {
		fmt.Fprintln(c.App.Writer, usage)
		return "", "", cli.Exit("", 1)
	}
	return stylesheet, image, nil
}

func renderConfig(c *cli.Context) render.Config {
	cfg := render.NewConfig()
	cfg.Width = c.Uint(WIDTH)
	cfg.Height = c.Uint(HEIGHT)
	cfg.ScaleFactor = c.Float64(SCALEFACTOR)
	cfg.Command = c.String(RENDERER)
	return cfg
}

// loadMap creates a map with the stylesheet, compiling it first when it is a Carto project.
func (r *runner) loadMap(c *cli.Context, stylesheet string) (*render.Map, error) {
	if style.NeedsCompile(stylesheet) {
		compiler := r.compiler
		if compiler == nil {
			compiler = style.Carto{Command: c.String(CARTO)}
		}
		compiled, err := style.CompileFile(c.Context, compiler, stylesheet)
		if errors.Is(err, style.ErrCompilerUnavailable) {
			fmt.Fprintln(c.App.Writer, "Carto is required to render .mml files.")
			return nil, cli.Exit("", 1)
		}
		if err != nil {
			style.WriteErrors(c.App.ErrWriter, err, errorWidth)
			return nil, cli.Exit("", 1)
		}
		stylesheet = compiled
	}

	m, err := render.NewMap(renderConfig(c), r.renderer)
	if err != nil {
		return nil, err
	}
	if err = m.LoadStyle(stylesheet); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *runner) renderAndOpen(c *cli.Context, m *render.Map, image string) error {
	if err := m.RenderToFile(c.Context, image); err != nil {
		return err
	}
	if c.Bool(NOOPEN) {
		return nil
	}
	opener := r.opener
	if opener == nil {
		opener = openInViewer
	}
	if err := opener(c.Context, image); err != nil {
		log.Warn().Err(err).Str("image", image).Msg("could not open image")
	}
	return nil
}
