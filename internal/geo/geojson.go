package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"carva/internal/domain"
)

// Marker kinds carried in the "kind" property of exported features.
const (
	MarkerOrigin      = "origin"
	MarkerDestination = "destination"
	MarkerDriver      = "driver"
	MarkerRoute       = "route"
)

// Point builds an orb point from latitude and longitude.
func Point(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}

// RequestFeatures exports a request as a feature collection: the owner's
// position, the destination, the driver snapshot when one is assigned, and
// the straight tow route between origin and destination.
func RequestFeatures(req *domain.ActiveRequest) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	origin := Point(req.UserLat, req.UserLng)
	dest := Point(req.DestLat, req.DestLng)

	of := geojson.NewFeature(origin)
	of.Properties["kind"] = MarkerOrigin
	of.Properties["name"] = req.Name
	fc.Append(of)

	df := geojson.NewFeature(dest)
	df.Properties["kind"] = MarkerDestination
	df.Properties["name"] = req.DestName
	fc.Append(df)

	if req.HasDriver() && (req.Sat7aLat != 0 || req.Sat7aLng != 0) {
		driver := Point(req.Sat7aLat, req.Sat7aLng)
		sf := geojson.NewFeature(driver)
		sf.Properties["kind"] = MarkerDriver
		sf.Properties["name"] = req.DriverName
		sf.Properties["plate"] = req.DriverPlate
		sf.Properties["distanceToOriginKm"] = DistanceBetween(driver, origin)
		fc.Append(sf)
	}

	route := geojson.NewFeature(orb.LineString{origin, dest})
	route.Properties["kind"] = MarkerRoute
	route.Properties["distanceKm"] = DistanceBetween(origin, dest)
	route.Properties["status"] = string(req.Status)
	fc.Append(route)

	return fc
}
