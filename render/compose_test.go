package render

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	layer := xmlLayer{
		Name:       "test",
		SRS:        "+init=epsg:4326",
		Styles:     []string{"points", "labels"},
		Parameters: []xmlParameter{{Name: "type", Value: "ogr"}},
	}
	tests := []struct {
		name   string
		style  string
		layers []xmlLayer
		extent *geom.Extent
		want   string
	}{
		{
			name:  "unchanged",
			style: `<?xml version="1.0"?>` + "\n" + `<Map srs="+init=epsg:4326"><!-- c --><Style name="s"/></Map>`,
			want:  `<?xml version="1.0"?>` + "\n" + `<Map srs="+init=epsg:4326"><!-- c --><Style name="s"/></Map>`,
		},
		{
			name:   "layer appended",
			style:  `<Map><Layer name="base"/></Map>`,
			layers: []xmlLayer{layer},
			want:   `<Map><Layer name="base"/><Layer name="test" srs="+init=epsg:4326"><StyleName>points</StyleName><StyleName>labels</StyleName><Datasource><Parameter name="type">ogr</Parameter></Datasource></Layer></Map>`,
		},
		{
			name:   "self closing root",
			style:  `<Map/>`,
			layers: []xmlLayer{layer},
			extent: &geom.Extent{0, 0, 1.5, 2},
			want:   `<Map maximum-extent="0,0,1.5,2"><Layer name="test" srs="+init=epsg:4326"><StyleName>points</StyleName><StyleName>labels</StyleName><Datasource><Parameter name="type">ogr</Parameter></Datasource></Layer></Map>`,
		},
		{
			name:   "maximum extent replaced",
			style:  `<Map maximum-extent="1,1,2,2" srs="x"></Map>`,
			extent: &geom.Extent{-180, -90, 180, 90},
			want:   `<Map maximum-extent="-180,-90,180,90" srs="x"></Map>`,
		},
		{
			name:  "escaped text",
			style: `<Map><Filter>[NAME]='A&amp;B' and [POP]&lt;3</Filter></Map>`,
			want:  `<Map><Filter>[NAME]='A&amp;B' and [POP]&lt;3</Filter></Map>`,
		},
		{
			name:   "entities kept",
			style:  `<!DOCTYPE Map [<!ENTITY srs4326 "+proj=longlat">]>` + "\n" + `<Map srs="&srs4326;">` + "\n" + `  <Layer name="base" srs="&srs4326;"/>` + "\n" + `</Map>`,
			layers: []xmlLayer{{Name: "s", SRS: "+proj=longlat", Parameters: []xmlParameter{{Name: "type", Value: "ogr"}}}},
			extent: &geom.Extent{0, 0, 1, 1},
			want:   `<!DOCTYPE Map [<!ENTITY srs4326 "+proj=longlat">]>` + "\n" + `<Map srs="&srs4326;" maximum-extent="0,0,1,1">` + "\n" + `  <Layer name="base" srs="&srs4326;"/>` + "\n" + `<Layer name="s" srs="+proj=longlat"><Datasource><Parameter name="type">ogr</Parameter></Datasource></Layer></Map>`,
		},
		{
			name:   "prefixed root",
			style:  `<m:Map xmlns:m="urn:x" m:srs="x"/>`,
			layers: []xmlLayer{{Name: "s", Parameters: []xmlParameter{{Name: "type", Value: "ogr"}}}},
			want:   `<m:Map xmlns:m="urn:x" m:srs="x"><Layer name="s"><Datasource><Parameter name="type">ogr</Parameter></Datasource></Layer></m:Map>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compose([]byte(tt.style), tt.layers, tt.extent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMapAttr(t *testing.T) {
	got, err := mapAttr([]byte(`<?xml version="1.0"?><!-- x --><Map srs="+init=epsg:3857" background-color="white"/>`), "srs")
	require.NoError(t, err)
	assert.Equal(t, "+init=epsg:3857", got)

	got, err = mapAttr([]byte(`<!DOCTYPE Map [
<!ENTITY % params SYSTEM "params.ent">
<!ENTITY srs3857 '+init=epsg:3857'>
<!ENTITY srs4326 "+proj=longlat">
]><Map srs="&srs4326;"/>`), "srs")
	require.NoError(t, err)
	assert.Equal(t, "+proj=longlat", got)

	got, err = mapAttr([]byte(`<Map/>`), "srs")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = mapAttr([]byte(`<Style/>`), "srs")
	assert.Error(t, err)
	_, err = mapAttr([]byte(``), "srs")
	assert.Error(t, err)
}
