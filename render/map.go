// Package render builds maps from an XML stylesheet plus streamed point layers
// and hands them to an external renderer.
package render

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/pdok/streamrender/geomhelp"
	"github.com/pdok/streamrender/pull"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Featureset is a pull source of point records, such as a *pull.Adapter.
// Next is only ever called from the goroutine that renders.
type Featureset interface {
	Next() (pull.Record, bool, error)
	Extent() geom.Extent
}

// Layer is a map layer whose features are streamed from a Featureset.
type Layer struct {
	Name string `validate:"required"`
	// SRS is the projection of the features, the map's srs when empty
	SRS        string
	Styles     []string
	Featureset Featureset `validate:"required"`
}

// Map is a stylesheet with streamed layers, rendered at a fixed size.
type Map struct {
	cfg      Config
	renderer Renderer

	style     []byte
	stylePath string
	baseDir   string
	layers    []Layer
	zoomAll   bool
}

// NewMap creates an empty map. A nil renderer means the Command from the config.
func NewMap(cfg Config, renderer Renderer) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = Command{Path: cfg.Command}
	}
	return &Map{cfg: cfg, renderer: renderer}, nil
}

// LoadStyle loads an XML stylesheet file. Relative paths in it resolve against its directory.
func (m *Map) LoadStyle(path string) error {
	style, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "could not load style")
	}
	if err = m.LoadStyleString(string(style), filepath.Dir(path)); err != nil {
		return errors.Wrap(err, path)
	}
	m.stylePath = path
	return nil
}

// LoadStyleString loads an XML stylesheet. Relative paths in it resolve against baseDir.
func (m *Map) LoadStyleString(style string, baseDir string) error {
	if _, err := mapAttr([]byte(style), "srs"); err != nil {
		return err
	}
	m.style = []byte(style)
	m.stylePath = ""
	m.baseDir = baseDir
	return nil
}

// AddLayer adds a streamed layer on top of the layers of the stylesheet.
func (m *Map) AddLayer(l Layer) error {
	if err := validate.Struct(l); err != nil {
		return errors.Wrap(err, "invalid layer")
	}
	for _, existing := range m.layers {
		if existing.Name == l.Name {
			return errors.Errorf("duplicate layer name %q", l.Name)
		}
	}
	if len(l.Styles) == 0 {
		log.Warn().Str("layer", l.Name).Msg("layer has no styles and will not be drawn")
	}
	m.layers = append(m.layers, l)
	return nil
}

// ZoomAll fits the view to the extent of the streamed layers.
// Without streamed layers the renderer fits the view to the layers of the stylesheet.
func (m *Map) ZoomAll() {
	m.zoomAll = true
}

// Extent is the view set by ZoomAll, ok is false when the renderer decides.
func (m *Map) Extent() (extent geom.Extent, ok bool) {
	if !m.zoomAll {
		return extent, false
	}
	extents := make([]geom.Extent, len(m.layers))
	for i := range m.layers {
		extents[i] = m.layers[i].Featureset.Extent()
	}
	return geomhelp.UnionExtents(extents...)
}

// RenderToFile renders to an image file, the format follows from its extension.
// Streamed layers are pulled to exhaustion during the render, so they are drawn by
// the first render only.
func (m *Map) RenderToFile(ctx context.Context, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if m.style == nil {
		return errors.New("no style loaded")
	}

	stylePath := m.stylePath
	if stylePath == "" || len(m.layers) > 0 {
		spoolDir, err := os.MkdirTemp("", "streamrender-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(spoolDir)
		stylePath, err = m.writeComposedStyle(spoolDir)
		if err != nil {
			return err
		}
		defer os.Remove(stylePath)
	}

	log.Info().Str("output", path).Msg("=== start rendering ===")
	err = m.renderer.Render(ctx, Job{
		Style:       stylePath,
		Output:      path,
		Format:      format,
		Width:       m.cfg.Width,
		Height:      m.cfg.Height,
		ScaleFactor: m.cfg.ScaleFactor,
	})
	if err != nil {
		return err
	}
	log.Info().Str("output", path).Msg("=== done rendering ===")
	return nil
}

// RenderToBuffer renders to memory in the given format (eg "png").
func (m *Map) RenderToBuffer(ctx context.Context, format string) ([]byte, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "streamrender-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	output := filepath.Join(dir, "map"+f.Ext())
	if err = m.RenderToFile(ctx, output); err != nil {
		return nil, err
	}
	return os.ReadFile(output)
}

// writeComposedStyle spools the streamed layers and writes the stylesheet that includes them
// next to the original, so relative paths keep resolving.
func (m *Map) writeComposedStyle(spoolDir string) (string, error) {
	mapSRS, err := mapAttr(m.style, "srs")
	if err != nil {
		return "", err
	}

	var xmlLayers []xmlLayer
	if len(m.layers) > 0 {
		xmlLayers, err = spool(spoolDir, m.layers, mapSRS, m.cfg.Pagesize)
		if err != nil {
			return "", err
		}
	}

	var extent *geom.Extent
	if e, ok := m.Extent(); ok {
		extent = &e
	}
	composed, err := compose(m.style, xmlLayers, extent)
	if err != nil {
		return "", err
	}

	baseDir := m.baseDir
	if baseDir == "" {
		baseDir = "."
	}
	f, err := os.CreateTemp(baseDir, ".streamrender-*.xml")
	if err != nil {
		return "", errors.Wrap(err, "could not write composed style")
	}
	defer f.Close()
	if _, err = f.Write(composed); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "could not write composed style")
	}
	return f.Name(), nil
}
