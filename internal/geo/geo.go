package geo

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 1.609344
)

// HaversineKm returns the great-circle distance between two lat/lon points in kilometres.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// HaversineMiles is HaversineKm expressed in statute miles.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKm(lat1, lon1, lat2, lon2) / kmPerMile
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
