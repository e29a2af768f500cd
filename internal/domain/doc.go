// Package domain models the US traffic-accident dataset and the tabular
// preparation applied to it before any chart or export is produced.
//
// # Data Source
//
// The input is the public "US Accidents" CSV export: one row per reported
// accident, a few dozen columns, several million rows for the full file.
// Only the columns listed in [RequiredColumns] are interpreted; all others
// are carried through the raw table for the missingness report and ignored.
//
// # Missing Values
//
// A raw cell is missing when it is empty or equals one of [MissingTokens]
// ("NA", "NaN", "null", ...). Every prepared field that can be missing is a
// sql.Null wrapper, so consumers must check Valid before reading V.
//
// Time format:
//
//	Start_Time  "2016-02-08 05:46:00.000000000" or "2016-02-08 05:46:00-05:00".
//	            Only the first 19 characters are kept and parsed strictly as
//	            "2006-01-02 15:04:05" in UTC. Anything else becomes missing.
//	End_Time    parsed permissively (RFC 3339, fractional seconds, zones,
//	            US slash dates). Failures become missing.
//
// Derived temporal attributes (Hour, DayOfWeek, Month, Year) follow
// Start_Time. DayOfWeek is Monday-indexed: Monday=0 ... Sunday=6.
//
// Weather measurements:
//
//	Temperature(F), Humidity(%), Pressure(in), Visibility(mi), Wind_Speed(mph)
//
// Missing readings are replaced by the column median over the observed
// values. Medians are computed once per column before any cell is filled.
//
// Day index:
//
//	The integer "Day" column (0..6) maps to Mon..Sun through [DayNames].
//	Values outside that range abort preparation with [InvalidDayIndexError].
package domain
