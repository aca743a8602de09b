package domain

import (
	"errors"
	"fmt"
	"regexp"
)

// refPollutantRe recognizes reference headers for gases and particulates
// measured by city-specific instrumentation: the NO, CO, O and PM families
// (NO, NO2, CO, CO_ppm, O3, PM1, PM10.TEOM, ...). Latitude, temperature and
// similar site telemetry headers deliberately do not match.
var refPollutantRe = regexp.MustCompile(`^Ref\.(NO|CO|O|PM)`)

// cityCodes maps the first three characters of a reference site id to its
// city code. The VIT prefix is an Antwerp site that predates the campaign's
// naming scheme and folds into the Antwerp code. An explicit table, not a
// string-similarity rule: an absent prefix is a hard error.
var cityCodes = map[string]string{
	"ANT": "ANT",
	"OSL": "OSL",
	"ZAG": "ZAG",
	"VIT": "ANT",
}

// ErrUnknownCityPrefix reports a reference site id whose prefix has no city
// code. This is a data or programming error; guessing a code would silently
// merge instruments with different calibration and units.
var ErrUnknownCityPrefix = errors.New("unknown reference site prefix")

// DisambiguateReferenceHeader rewrites a reference column name for storage.
// Pollutant-family headers are suffixed with the city code of the site that
// produced them, preventing collisions between identical instrument codes in
// different cities: "Ref.NO" at an OSL site becomes "Ref_NO_OSL". All other
// reference headers only become storage-safe.
func DisambiguateReferenceHeader(header, locationID string) (string, error) {
	safe := storageSafeHeader(header)
	if !refPollutantRe.MatchString(header) {
		return safe, nil
	}
	if len(locationID) < 3 {
		return "", fmt.Errorf("%w: site id %q is too short", ErrUnknownCityPrefix, locationID)
	}
	code, ok := cityCodes[locationID[:3]]
	if !ok {
		return "", fmt.Errorf("%w: %q (site id %q)", ErrUnknownCityPrefix, locationID[:3], locationID)
	}
	return safe + "_" + code, nil
}
