package aoi

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-aoi/internal/geometry"
)

// FeatureCollection renders AOIs as GeoJSON features with id, name,
// createdAt and areaSqm properties. Records whose geometry cannot be
// parsed are left out.
func FeatureCollection(list []AOI) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, a := range list {
		g, err := geometry.Parse(a.Geometry)
		if err != nil {
			continue
		}
		f := geojson.NewFeature(g)
		f.ID = a.ID
		f.Properties["id"] = a.ID
		f.Properties["name"] = a.Name
		f.Properties["createdAt"] = a.CreatedAt
		f.Properties["areaSqm"] = geometry.Area(a.Geometry)
		fc.Append(f)
	}
	return fc
}
