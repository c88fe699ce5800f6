package main

import (
	"github.com/iancoleman/strcase"
	"github.com/pdok/streamrender/gpkg"
	"github.com/pdok/streamrender/pull"
	"github.com/pdok/streamrender/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const SOURCE string = `source`
const TABLE string = `table`
const FIELDS string = `fields`
const EXTENT string = `extent`
const OPTIONS string = `options`
const LAYER string = `layer`
const SRS string = `srs`
const STYLES string = `styles`

// streamCommand renders the features of a GeoPackage table as points,
// streamed into the map through a pull adapter.
//
//nolint:funlen
func streamCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Stream the bounding box centers of GeoPackage features into the map as a point layer",
		ArgsUsage: "<stylesheet> <image>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     SOURCE,
				Aliases:  []string{"s"},
				Usage:    "Source GPKG",
				Required: true,
				EnvVars:  []string{strcase.ToScreamingSnake(SOURCE)},
			},
			&cli.StringFlag{
				Name:    TABLE,
				Aliases: []string{"t"},
				Usage:   "Feature table in the source GPKG. May be omitted when there is only one",
				EnvVars: []string{strcase.ToScreamingSnake(TABLE)},
			},
			&cli.StringSliceFlag{
				Name:    FIELDS,
				Aliases: []string{"f"},
				Usage:   "Columns copied into the streamed features. Default all. E.g.: NAME,POP2005",
				EnvVars: []string{strcase.ToScreamingSnake(FIELDS)},
			},
			&cli.StringFlag{
				Name:    EXTENT,
				Aliases: []string{"e"},
				Usage:   "Extent of the streamed features: minx,miny,maxx,maxy. E.g.: -180,-90,180,90",
				EnvVars: []string{strcase.ToScreamingSnake(EXTENT)},
			},
			&cli.StringFlag{
				Name:    OPTIONS,
				Usage:   `Datasource options as JSON, an alternative for --extent. E.g.: {"extent": [-180,-90,180,90]}`,
				EnvVars: []string{strcase.ToScreamingSnake(OPTIONS)},
			},
			&cli.StringFlag{
				Name:    LAYER,
				Usage:   "Name of the streamed layer",
				Value:   "stream",
				EnvVars: []string{strcase.ToScreamingSnake(LAYER)},
			},
			&cli.StringFlag{
				Name:    SRS,
				Usage:   "Projection of the source features, the srs of the stylesheet's map when omitted",
				EnvVars: []string{strcase.ToScreamingSnake(SRS)},
			},
			&cli.StringSliceFlag{
				Name:    STYLES,
				Usage:   "Styles (from the stylesheet) of the streamed layer",
				Value:   cli.NewStringSlice("points"),
				EnvVars: []string{strcase.ToScreamingSnake(STYLES)},
			},
		},
		Action: func(c *cli.Context) error {
			stylesheet, image, err := positionalArgs(c)
			if err != nil {
				return err
			}
			options, err := streamOptions(c)
			if err != nil {
				return err
			}

			source, err := gpkg.OpenSource(c.String(SOURCE))
			if err != nil {
				return err
			}
			defer source.Close()
			table, err := sourceTable(source, c.String(TABLE))
			if err != nil {
				return err
			}
			features, err := source.Featureset(table)
			if err != nil {
				return err
			}
			defer features.Close()
			producer, err := gpkg.NewCenterProducer(features, c.StringSlice(FIELDS)...)
			if err != nil {
				return err
			}
			adapter, err := pull.Configure(producer, options)
			if err != nil {
				return err
			}

			m, err := r.loadMap(c, stylesheet)
			if err != nil {
				return err
			}
			err = m.AddLayer(render.Layer{
				Name:       c.String(LAYER),
				SRS:        c.String(SRS),
				Styles:     c.StringSlice(STYLES),
				Featureset: adapter,
			})
			if err != nil {
				return err
			}
			m.ZoomAll()
			log.Info().Str("source", c.String(SOURCE)).Str("table", table.Name).Msg("streaming")
			if err = r.renderAndOpen(c, m, image); err != nil {
				return err
			}
			log.Info().Uint64("features", adapter.Pulled()).Uint64("skipped", producer.Skipped()).Msgf("rendered to %s", image)
			return nil
		},
	}
}

// streamOptions reads --options and lets --extent override its extent.
func streamOptions(c *cli.Context) (pull.Options, error) {
	var options pull.Options
	var err error
	if c.IsSet(OPTIONS) {
		options, err = pull.ParseOptionsJSON([]byte(c.String(OPTIONS)))
		if err != nil {
			return options, err
		}
	}
	if c.IsSet(EXTENT) {
		options.Extent, err = pull.ParseExtent(c.String(EXTENT))
		if err != nil {
			return options, err
		}
	}
	return options, nil
}

// sourceTable finds the table by name, or the only table when no name is given.
func sourceTable(source *gpkg.Source, name string) (gpkg.Table, error) {
	if name != "" {
		return source.Table(name)
	}
	tables, err := source.Tables()
	if err != nil {
		return gpkg.Table{}, err
	}
	if len(tables) != 1 {
		names := make([]string, len(tables))
		for i := range tables {
			names[i] = tables[i].Name
		}
		return gpkg.Table{}, errors.Errorf("source has %d feature tables %v, choose one with --%s", len(tables), names, TABLE)
	}
	return tables[0], nil
}
