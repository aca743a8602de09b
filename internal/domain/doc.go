// Package domain models SensEURCity low-cost-sensor CSV exports and derives
// the canonical record streams loaded into the measurement store.
//
// # Data Source
//
// The SensEURCity campaign deployed low-cost air-quality sensors across
// Antwerp, Oslo and Zagreb, periodically co-locating them with regulatory
// reference monitors. The published dataset (Zenodo) contains one CSV per
// physical device with one row per timestamp. The column set varies from
// file to file; roles are encoded in column naming conventions:
//
//	"Ref." prefix  →  value copied from the co-located reference monitor,
//	                  e.g. "Ref.NO2", "Ref.PM10.TEOM", "Ref.Temp".
//	"_flag" suffix →  quality flag for the measurement column of the same
//	                  name, e.g. "SHT31TE" / "SHT31TE_flag".
//	"Location.ID"  →  reference site the device was co-located with at that
//	                  timestamp; blank while deployed in the field.
//	"date"         →  observation timestamp.
//
// Everything else (latitude, longitude, altitude, ...) is file metadata.
//
// # Identity
//
// Each observation gets a deterministic SHA-1 point hash of the device name
// and the timestamp as floating-point epoch seconds; reference observations
// hash the site id instead. Reprocessing a file yields byte-identical hashes,
// so the store's insert-or-skip-on-conflict loading is idempotent. See
// [PointHash].
//
// # Reference header disambiguation
//
// The same instrument code (NO, NO2, O3, CO, PM family) is reused across
// cities with different equipment and calibration. Pollutant reference
// headers are therefore suffixed with a city code derived from the site id
// prefix: "Ref.NO" at "OSL_REF_KVN" becomes "Ref_NO_OSL". One Antwerp site
// uses the historical "VIT" prefix and folds into the Antwerp code.
package domain
