// Package store persists the derived record streams into a relational
// database under a star-like schema. Fact tables carry the observations,
// dimension tables the devices, sites, headers and co-location spans that
// qualify them. Every table has a natural or composite unique key derived
// from the deterministic point hashes, so reloading a file inserts nothing
// new: conflicts are skipped, not updated.
package store

import "time"

// DimDevice is one catalogued device or reference site.
type DimDevice struct {
	Key       string `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	ShortName string `gorm:"not null"`
	Dataset   string `gorm:"not null"`
	Reference bool   `gorm:"not null"`
}

// DimHeader is one catalogued measurement header.
type DimHeader struct {
	Header    string `gorm:"primaryKey"`
	Parameter string `gorm:"not null"`
	Unit      string `gorm:"not null"`
	Supplier  string
	Sensor    string
	Type      string
}

// DimUnitConversion catalogues a scale factor between two units of a
// parameter. Factors are reference data; no conversion is applied at load
// time.
type DimUnitConversion struct {
	ID        uint    `gorm:"primaryKey"`
	UnitA     string  `gorm:"not null;uniqueIndex:ix_unit_conversion"`
	UnitB     string  `gorm:"not null;uniqueIndex:ix_unit_conversion"`
	Parameter string  `gorm:"not null;uniqueIndex:ix_unit_conversion"`
	Scale     float64 `gorm:"not null"`
}

// FactMeasurement is one device observation point.
type FactMeasurement struct {
	PointHash string    `gorm:"primaryKey;column:point_hash"`
	Timestamp time.Time `gorm:"not null;uniqueIndex:ix_measurement"`
	DeviceKey string    `gorm:"not null;uniqueIndex:ix_measurement;index"`
}

// FactValue is one melted device measurement value.
type FactValue struct {
	ID        uint    `gorm:"primaryKey"`
	PointHash string  `gorm:"column:point_hash;not null;uniqueIndex:ix_value"`
	Header    string  `gorm:"not null;uniqueIndex:ix_value"`
	Value     float64 `gorm:"not null"`
}

// DimFlag is one melted quality flag value.
type DimFlag struct {
	ID        uint   `gorm:"primaryKey"`
	PointHash string `gorm:"column:point_hash;not null;uniqueIndex:ix_flag"`
	Flag      string `gorm:"not null;uniqueIndex:ix_flag"`
	Value     string `gorm:"not null"`
}

// DimColocation is one contiguous span linking a device to the reference
// site it shared.
type DimColocation struct {
	ID        uint      `gorm:"primaryKey"`
	DeviceKey string    `gorm:"not null;uniqueIndex:ix_colocation"`
	OtherKey  string    `gorm:"not null;uniqueIndex:ix_colocation"`
	StartDate time.Time `gorm:"not null;uniqueIndex:ix_colocation"`
	EndDate   time.Time `gorm:"not null"`
}

// FactRefMeasurement is one reference site observation point.
type FactRefMeasurement struct {
	PointHash  string    `gorm:"primaryKey;column:point_hash"`
	Timestamp  time.Time `gorm:"not null;uniqueIndex:ix_ref_measurement"`
	LocationID string    `gorm:"not null;uniqueIndex:ix_ref_measurement;index"`
}

// FactRefValue is one melted, deduplicated reference reading under its
// city-qualified header.
type FactRefValue struct {
	ID        uint    `gorm:"primaryKey"`
	PointHash string  `gorm:"column:point_hash;not null;uniqueIndex:ix_ref_value"`
	Header    string  `gorm:"not null;uniqueIndex:ix_ref_value"`
	Value     float64 `gorm:"not null"`
}

// DimDeviceHeader catalogs which headers a device file carried and the flag
// column paired with each.
type DimDeviceHeader struct {
	ID        uint   `gorm:"primaryKey"`
	DeviceKey string `gorm:"not null;uniqueIndex:ix_device_header"`
	Header    string `gorm:"not null;uniqueIndex:ix_device_header"`
	Flag      string
}

// DimRefHeader catalogs which city-qualified headers a reference site
// produced. Reference headers have no flag column.
type DimRefHeader struct {
	ID        uint   `gorm:"primaryKey"`
	DeviceKey string `gorm:"not null;uniqueIndex:ix_ref_header"`
	Header    string `gorm:"not null;uniqueIndex:ix_ref_header"`
}

// MetaFilesProcessed records which archive files have been fully loaded so
// reruns can skip them.
type MetaFilesProcessed struct {
	Filename  string    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"not null"`
}

// allModels lists every table for migration.
var allModels = []any{
	&DimDevice{},
	&DimHeader{},
	&DimUnitConversion{},
	&FactMeasurement{},
	&FactValue{},
	&DimFlag{},
	&DimColocation{},
	&FactRefMeasurement{},
	&FactRefValue{},
	&DimDeviceHeader{},
	&DimRefHeader{},
	&MetaFilesProcessed{},
}
