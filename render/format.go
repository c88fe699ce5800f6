package render

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format is an output image format of the renderer.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
	WebP Format = "webp"
	PDF  Format = "pdf"
	SVG  Format = "svg"
	PS   Format = "ps"
)

var formatsByExt = map[string]Format{
	"png":  PNG,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"tif":  TIFF,
	"tiff": TIFF,
	"webp": WebP,
	"pdf":  PDF,
	"svg":  SVG,
	"ps":   PS,
}

// ParseFormat accepts a format name or file extension, case-insensitive, with or without dot.
func ParseFormat(s string) (Format, error) {
	f, ok := formatsByExt[strings.ToLower(strings.TrimPrefix(s, "."))]
	if !ok {
		return "", errors.Errorf("unsupported image format %q", s)
	}
	return f, nil
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", errors.Errorf("cannot infer image format of %q, it has no extension", path)
	}
	return ParseFormat(ext)
}

// Ext is the preferred file extension, with dot.
func (f Format) Ext() string {
	return "." + string(f)
}
