package pharmacy

import "math"

const (
	earthRadiusKM = 6371.0
	kmPerDegree   = 111.045
)

// BoundingBox is a latitude/longitude rectangle. When WrapsLongitude is set
// the longitude bounds are not usable and only latitude should be filtered.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	WrapsLongitude bool
}

// HaversineKM returns the great-circle distance between two points in
// kilometres.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// BoxAround returns a rectangle that contains every point within radiusKM of
// (lat, lon). It over-covers; callers filter by exact distance afterwards.
func BoxAround(lat, lon, radiusKM float64) BoundingBox {
	latDelta := radiusKM / kmPerDegree
	box := BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
	}

	cos := math.Cos(radians(lat))
	if cos < 1e-6 || box.MinLat == -90 || box.MaxLat == 90 {
		box.WrapsLongitude = true
		return box
	}
	lonDelta := radiusKM / (kmPerDegree * cos)
	box.MinLon, box.MaxLon = lon-lonDelta, lon+lonDelta
	if box.MinLon < -180 || box.MaxLon > 180 {
		box.WrapsLongitude = true
	}
	return box
}
