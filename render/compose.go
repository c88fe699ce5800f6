package render

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/pkg/errors"
)

type xmlLayer struct {
	XMLName    xml.Name       `xml:"Layer"`
	Name       string         `xml:"name,attr"`
	SRS        string         `xml:"srs,attr,omitempty"`
	Styles     []string       `xml:"StyleName"`
	Parameters []xmlParameter `xml:"Datasource>Parameter"`
}

type xmlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// entityRegex matches the internal general entities of a DOCTYPE, as Mapnik stylesheets use for
// shared projections. External and parameter entities are not resolved.
var entityRegex = regexp.MustCompile(`<!ENTITY\s+([\w.:-]+)\s+(?:"([^"]*)"|'([^']*)')\s*>`)

var maximumExtentRegex = regexp.MustCompile(`(\smaximum-extent\s*=\s*)(?:"[^"]*"|'[^']*')`)

func newStyleDecoder(style []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(style))
	d.Strict = false
	d.Entity = map[string]string{}
	return d
}

// declareEntities adds the entities of a DOCTYPE to the decoder, so later attributes resolve them.
func declareEntities(d *xml.Decoder, directive xml.Directive) {
	for _, m := range entityRegex.FindAllSubmatch(directive, -1) {
		value := string(m[2])
		if len(m[3]) > 0 {
			value = string(m[3])
		}
		d.Entity[string(m[1])] = value
	}
}

// mapAttr returns an attribute of the root Map element of a stylesheet, with entities resolved.
func mapAttr(style []byte, name string) (string, error) {
	d := newStyleDecoder(style)
	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			return "", errors.New("stylesheet has no root element")
		}
		if err != nil {
			return "", errors.Wrap(err, "invalid stylesheet")
		}
		switch t := tok.(type) {
		case xml.Directive:
			declareEntities(d, t)
		case xml.StartElement:
			if t.Name.Local != "Map" {
				return "", errors.Errorf("stylesheet root is <%s>, not <Map>", t.Name.Local)
			}
			for _, a := range t.Attr {
				if a.Name.Space == "" && a.Name.Local == name {
					return a.Value, nil
				}
			}
			return "", nil
		}
	}
}

// compose appends layers to the root Map element and, when extent is set,
// sets the map's maximum-extent (replacing an existing one).
// The rest of the stylesheet is copied byte for byte.
func compose(style []byte, layers []xmlLayer, extent *geom.Extent) ([]byte, error) {
	d := newStyleDecoder(style)
	var root xml.Name
	var rootStart, rootEnd int64
	depth := 0
	for {
		offset := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			return nil, errors.New("stylesheet has no root element")
		}
		if err != nil {
			return nil, errors.Wrap(err, "invalid stylesheet")
		}
		switch t := tok.(type) {
		case xml.Directive:
			declareEntities(d, t)
		case xml.StartElement:
			if depth == 0 {
				root = t.Name
				rootStart, rootEnd = offset, d.InputOffset()
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return splice(style, root, rootStart, rootEnd, offset, layers, extent)
			}
		}
	}
}

// splice writes the stylesheet with a rewritten root start tag (style[start:end]) and the layers
// inserted where the root end tag begins.
func splice(style []byte, root xml.Name, start, end, closing int64, layers []xmlLayer, extent *geom.Extent) ([]byte, error) {
	tag := string(style[start:end])
	selfClosing := strings.HasSuffix(tag, "/>")
	if extent != nil {
		tag = setMaximumExtent(tag, formatExtent(*extent))
	}

	var encoded bytes.Buffer
	e := xml.NewEncoder(&encoded)
	for _, l := range layers {
		if err := e.Encode(l); err != nil {
			return nil, errors.Wrap(err, "could not write layer")
		}
	}
	if err := e.Flush(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(style[:start])
	if selfClosing {
		out.WriteString(strings.TrimSuffix(tag, "/>") + ">")
		out.Write(encoded.Bytes())
		out.WriteString("</" + qualifiedName(root) + ">")
	} else {
		out.WriteString(tag)
		out.Write(style[end:closing])
		out.Write(encoded.Bytes())
	}
	out.Write(style[closing:])
	return out.Bytes(), nil
}

func setMaximumExtent(tag, value string) string {
	if maximumExtentRegex.MatchString(tag) {
		return maximumExtentRegex.ReplaceAllLiteralString(tag, ` maximum-extent="`+value+`"`)
	}
	suffix := ">"
	if strings.HasSuffix(tag, "/>") {
		suffix = "/>"
	}
	body := strings.TrimRight(strings.TrimSuffix(tag, suffix), " \t\r\n")
	return body + ` maximum-extent="` + value + `"` + suffix
}

// qualifiedName writes a raw name back with its prefix.
func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func formatExtent(e geom.Extent) string {
	parts := make([]string, 4)
	for i, f := range e.Extent() {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
