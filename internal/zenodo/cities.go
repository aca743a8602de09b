// Package zenodo retrieves the SensEURCity dataset archive and walks the
// per-device CSV files inside it. The archive is a single zip published on
// Zenodo with one CSV per device under a dataset/ folder, named
// "<City>_<device>.csv".
package zenodo

import "strings"

// Cities is a bit set selecting which of the three campaign cities to
// process.
type Cities uint8

const (
	Antwerp Cities = 1 << iota
	Oslo
	Zagreb
)

// AllCities selects every campaign city.
func AllCities() Cities { return Antwerp | Oslo | Zagreb }

// Has reports whether the set contains the given city.
func (c Cities) Has(city Cities) bool { return c&city != 0 }

// cityPrefixes maps each city to its CSV filename prefix.
var cityPrefixes = []struct {
	city   Cities
	prefix string
}{
	{Antwerp, "Antwerp_"},
	{Oslo, "Oslo_"},
	{Zagreb, "Zagreb_"},
}

func (c Cities) String() string {
	var names []string
	for _, cp := range cityPrefixes {
		if c.Has(cp.city) {
			names = append(names, strings.TrimSuffix(cp.prefix, "_"))
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
