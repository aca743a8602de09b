// Package catalog exposes the bundled SensEURCity reference data: the
// measurement header catalog, the device and reference site catalog, and the
// unit conversion factor table. The JSON files are packaged with the binary
// and read as-is; conversion factors are catalogued, never applied.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed headers.json devices.json unit_conversions.json
var files embed.FS

// Header describes one measurement header: the field code used in the CSV
// exports together with the physical parameter and unit it reports. Fields
// beyond the required three (supplier, sensor model, ...) are kept in Other.
type Header struct {
	Header    string
	Parameter string
	Unit      string
	Other     map[string]any
}

func (h *Header) UnmarshalJSON(data []byte) error {
	raw, err := splitKnown(data, map[string]*string{
		"header":    &h.Header,
		"parameter": &h.Parameter,
		"unit":      &h.Unit,
	})
	if err != nil {
		return err
	}
	h.Other = raw
	return nil
}

// Device describes one catalogued device or reference site.
type Device struct {
	Key       string
	Name      string
	ShortName string
	Dataset   string
	Reference bool // true for reference monitor sites
	Other     map[string]any
}

func (d *Device) UnmarshalJSON(data []byte) error {
	var probe struct {
		Reference bool `json:"reference"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	d.Reference = probe.Reference

	raw, err := splitKnown(data, map[string]*string{
		"key":        &d.Key,
		"name":       &d.Name,
		"short_name": &d.ShortName,
		"dataset":    &d.Dataset,
	})
	if err != nil {
		return err
	}
	delete(raw, "reference")
	d.Other = raw
	return nil
}

// UnitConversion is one catalogued scale factor between two units of a
// parameter, e.g. ppb to µg/m³ for NO2.
type UnitConversion struct {
	UnitA     string  `json:"unit_a"`
	UnitB     string  `json:"unit_b"`
	Parameter string  `json:"parameter"`
	Scale     float64 `json:"scale"`
}

// Headers returns the bundled measurement header catalog.
func Headers() ([]Header, error) {
	return load[Header]("headers.json")
}

// Devices returns the bundled device and reference site catalog.
func Devices() ([]Device, error) {
	return load[Device]("devices.json")
}

// UnitConversions returns the bundled unit conversion factor table.
func UnitConversions() ([]UnitConversion, error) {
	return load[UnitConversion]("unit_conversions.json")
}

func load[T any](name string) ([]T, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read bundled catalog %s: %w", name, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse bundled catalog %s: %w", name, err)
	}
	return out, nil
}

// splitKnown unmarshals an object, copies the named string fields into their
// destinations and returns whatever remains.
func splitKnown(data []byte, known map[string]*string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for key, dest := range known {
		if v, ok := raw[key].(string); ok {
			*dest = v
		}
		delete(raw, key)
	}
	return raw, nil
}
