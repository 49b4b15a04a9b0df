// README: Shared identifiers and coordinates.
package types

type ID string

func (id ID) String() string { return string(id) }

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies inside WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
