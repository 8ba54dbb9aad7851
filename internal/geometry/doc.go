// Package geometry owns the static MFT chip geometry table.
//
// Responsibilities: parsing and validating the per-chip attribute table,
// exposing it as an immutable value, and fingerprinting it so repeated
// loads can be compared.
// Key types: Chip, Table, Source.
//
// The source of truth is a flat text table. The table compiled into the
// binary (chipmap.txt) is a synthesized placeholder: it agrees with the
// aggregate hit-map shapes, but its positions, ladder, sensor and transID
// values are not the detector's. Production deployments supply the real
// table as a file with the same layout; the two are never merged.
//
// Layout, one row per chip in ascending chip ID, 13 whitespace-separated
// fields:
//
//	half disk face zone ladder sensor transID layer x y z binx biny
//
// x, y and z are decimal centimetres; every other field is an integer.
// binx and biny are 1-based bin coordinates inside the chip's aggregate
// (half, disk, face) hit map. Blank lines and lines starting with '#'
// are ignored.
package geometry
