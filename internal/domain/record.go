package domain

import (
	"database/sql"
	"time"
)

// Source column names.
const (
	ColID               = "ID"
	ColSeverity         = "Severity"
	ColStartTime        = "Start_Time"
	ColEndTime          = "End_Time"
	ColStartLat         = "Start_Lat"
	ColStartLng         = "Start_Lng"
	ColState            = "State"
	ColWeatherCondition = "Weather_Condition"
	ColDay              = "Day"
	ColTrafficSignal    = "Traffic_Signal"
	ColJunction         = "Junction"
	ColStop             = "Stop"
	ColCrossing         = "Crossing"

	ColTemperature = "Temperature(F)"
	ColHumidity    = "Humidity(%)"
	ColPressure    = "Pressure(in)"
	ColVisibility  = "Visibility(mi)"
	ColWindSpeed   = "Wind_Speed(mph)"
)

// RequiredColumns is the input contract. Preparation fails with
// ColumnMissingError on the first absent column, in this order.
var RequiredColumns = []string{
	ColStartTime, ColEndTime, ColSeverity, ColWeatherCondition, ColState,
	ColStartLat, ColStartLng, ColDay, ColTrafficSignal, ColJunction, ColStop, ColCrossing,
	ColTemperature, ColHumidity, ColPressure, ColVisibility, ColWindSpeed,
}

// DayNames maps the Day index to its label, Monday first.
var DayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// AccidentRecord is one prepared row.
type AccidentRecord struct {
	ID       string
	Row      int // zero-based data row in the source table
	Severity sql.Null[int]

	StartTime sql.Null[time.Time]
	EndTime   sql.Null[time.Time]

	// Derived from StartTime.
	Hour      sql.Null[int]
	DayOfWeek sql.Null[int] // Monday=0
	Month     sql.Null[int]
	Year      sql.Null[int]

	// Weather measurements; all Valid after imputation.
	Temperature sql.Null[float64]
	Humidity    sql.Null[float64]
	Pressure    sql.Null[float64]
	Visibility  sql.Null[float64]
	WindSpeed   sql.Null[float64]

	WeatherCondition sql.Null[string]
	State            sql.Null[string]
	StartLat         sql.Null[float64]
	StartLng         sql.Null[float64]

	Day     sql.Null[int]
	DayName sql.Null[string]

	TrafficSignal sql.Null[bool]
	Junction      sql.Null[bool]
	Stop          sql.Null[bool]
	Crossing      sql.Null[bool]
}

// WeatherField binds a weather column name to its record field.
type WeatherField struct {
	Column string
	Field  func(r *AccidentRecord) *sql.Null[float64]
}

// WeatherFields lists the imputed weather measurements in column order.
var WeatherFields = []WeatherField{
	{ColTemperature, func(r *AccidentRecord) *sql.Null[float64] { return &r.Temperature }},
	{ColHumidity, func(r *AccidentRecord) *sql.Null[float64] { return &r.Humidity }},
	{ColPressure, func(r *AccidentRecord) *sql.Null[float64] { return &r.Pressure }},
	{ColVisibility, func(r *AccidentRecord) *sql.Null[float64] { return &r.Visibility }},
	{ColWindSpeed, func(r *AccidentRecord) *sql.Null[float64] { return &r.WindSpeed }},
}

// FeatureField binds a boolean road-feature column to its record field.
type FeatureField struct {
	Column string
	Field  func(r *AccidentRecord) sql.Null[bool]
}

// TrafficFeatures are the road features charted against severity.
var TrafficFeatures = []FeatureField{
	{ColTrafficSignal, func(r *AccidentRecord) sql.Null[bool] { return r.TrafficSignal }},
	{ColJunction, func(r *AccidentRecord) sql.Null[bool] { return r.Junction }},
	{ColStop, func(r *AccidentRecord) sql.Null[bool] { return r.Stop }},
	{ColCrossing, func(r *AccidentRecord) sql.Null[bool] { return r.Crossing }},
}

// ColumnMissing is one entry of the missingness report.
type ColumnMissing struct {
	Column  string
	Missing int
}

// PrepStats counts what preparation absorbed into missing values or filled.
type PrepStats struct {
	Rows              int
	StartTimeFailures int // present but unparseable
	EndTimeFailures   int
	Imputed           map[string]int // weather column -> cells filled
}

// Dataset is the prepared, read-only hand-off to exporters.
type Dataset struct {
	RunID       string
	Source      string
	PreparedAt  time.Time
	Missingness []ColumnMissing
	Medians     map[string]float64
	Stats       PrepStats
	Records     []AccidentRecord
}
