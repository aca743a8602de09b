package domain

import "time"

// MeasurementRecord identifies one observation point: a device (or reference
// site) at one timestamp. PointHash is the stable join key shared with the
// value and flag streams.
type MeasurementRecord struct {
	PointHash string
	Timestamp time.Time
	DeviceKey string
}

// ValueRecord is one melted (point, header, value) triple.
type ValueRecord struct {
	PointHash string
	Header    string
	Value     float64
}

// FlagRecord is one melted (point, flag, value) triple. Flags are strings
// such as "W" (warm-up) or the sentinel "Valid".
type FlagRecord struct {
	PointHash string
	Flag      string
	Value     string
}

// ColocationRecord is one contiguous span during which DeviceKey shared a
// site with the reference monitor OtherKey. Both dates are inclusive.
type ColocationRecord struct {
	DeviceKey string
	OtherKey  string
	StartDate time.Time
	EndDate   time.Time
}

// HeaderRecord maps a header to the device or reference site that produced
// it. Flag names the associated quality flag column for device headers and
// is empty for reference headers.
type HeaderRecord struct {
	DeviceKey string
	Header    string
	Flag      string
}
