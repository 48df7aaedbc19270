// Package geo contains pure geographic computation helpers shared by
// dispatch, batching and route suggestion.
package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceKm returns the great-circle distance in kilometres between two
// points, computed with the haversine formula.
func DistanceKm(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// WithinRadius reports whether b lies within radiusMeters of a.
func WithinRadius(a, b Point, radiusMeters float64) bool {
	return DistanceKm(a, b)*1000 <= radiusMeters
}

// BearingDeg returns the initial bearing in degrees [0, 360) from a to b.
func BearingDeg(a, b Point) float64 {
	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) - math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// BearingWithinTolerance reports whether two headings differ by no more
// than toleranceDeg. The angular difference is wrapped to [0, 180].
func BearingWithinTolerance(courseHeading, candidateHeading, toleranceDeg float64) bool {
	diff := math.Abs(math.Mod(courseHeading-candidateHeading, 360))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff <= toleranceDeg
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
