package store

import (
	"database/sql"
	"time"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// accidentRow maps an AccidentRecord onto prepared_accidents. The database/sql
// Null types are used because generic sql.Null values do not all satisfy
// driver.Value.
type accidentRow struct {
	RunID            string          `db:"run_id"`
	RowNum           int             `db:"row_num"`
	AccidentID       string          `db:"accident_id"`
	Severity         sql.NullInt64   `db:"severity"`
	StartTime        sql.NullTime    `db:"start_time"`
	EndTime          sql.NullTime    `db:"end_time"`
	StartHour        sql.NullInt64   `db:"start_hour"`
	DayOfWeek        sql.NullInt64   `db:"day_of_week"`
	StartMonth       sql.NullInt64   `db:"start_month"`
	StartYear        sql.NullInt64   `db:"start_year"`
	Temperature      sql.NullFloat64 `db:"temperature_f"`
	Humidity         sql.NullFloat64 `db:"humidity_pct"`
	Pressure         sql.NullFloat64 `db:"pressure_in"`
	Visibility       sql.NullFloat64 `db:"visibility_mi"`
	WindSpeed        sql.NullFloat64 `db:"wind_speed_mph"`
	WeatherCondition sql.NullString  `db:"weather_condition"`
	State            sql.NullString  `db:"state"`
	StartLat         sql.NullFloat64 `db:"start_lat"`
	StartLng         sql.NullFloat64 `db:"start_lng"`
	DayIndex         sql.NullInt64   `db:"day_index"`
	DayName          sql.NullString  `db:"day_name"`
	TrafficSignal    sql.NullBool    `db:"traffic_signal"`
	Junction         sql.NullBool    `db:"junction"`
	StopSign         sql.NullBool    `db:"stop_sign"`
	Crossing         sql.NullBool    `db:"crossing"`
}

const insertAccident = `INSERT INTO prepared_accidents (
    run_id, row_num, accident_id, severity, start_time, end_time,
    start_hour, day_of_week, start_month, start_year,
    temperature_f, humidity_pct, pressure_in, visibility_mi, wind_speed_mph,
    weather_condition, state, start_lat, start_lng, day_index, day_name,
    traffic_signal, junction, stop_sign, crossing
) VALUES (
    :run_id, :row_num, :accident_id, :severity, :start_time, :end_time,
    :start_hour, :day_of_week, :start_month, :start_year,
    :temperature_f, :humidity_pct, :pressure_in, :visibility_mi, :wind_speed_mph,
    :weather_condition, :state, :start_lat, :start_lng, :day_index, :day_name,
    :traffic_signal, :junction, :stop_sign, :crossing
)`

// accidentColumns is the bind-parameter count per inserted row.
const accidentColumns = 25

func toRow(runID string, r *domain.AccidentRecord) accidentRow {
	return accidentRow{
		RunID:            runID,
		RowNum:           r.Row,
		AccidentID:       r.ID,
		Severity:         nullInt(r.Severity),
		StartTime:        nullTime(r.StartTime),
		EndTime:          nullTime(r.EndTime),
		StartHour:        nullInt(r.Hour),
		DayOfWeek:        nullInt(r.DayOfWeek),
		StartMonth:       nullInt(r.Month),
		StartYear:        nullInt(r.Year),
		Temperature:      nullFloat(r.Temperature),
		Humidity:         nullFloat(r.Humidity),
		Pressure:         nullFloat(r.Pressure),
		Visibility:       nullFloat(r.Visibility),
		WindSpeed:        nullFloat(r.WindSpeed),
		WeatherCondition: nullString(r.WeatherCondition),
		State:            nullString(r.State),
		StartLat:         nullFloat(r.StartLat),
		StartLng:         nullFloat(r.StartLng),
		DayIndex:         nullInt(r.Day),
		DayName:          nullString(r.DayName),
		TrafficSignal:    nullBool(r.TrafficSignal),
		Junction:         nullBool(r.Junction),
		StopSign:         nullBool(r.Stop),
		Crossing:         nullBool(r.Crossing),
	}
}

func nullInt(v sql.Null[int]) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v.V), Valid: v.Valid}
}

func nullFloat(v sql.Null[float64]) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.V, Valid: v.Valid}
}

func nullString(v sql.Null[string]) sql.NullString {
	return sql.NullString{String: v.V, Valid: v.Valid}
}

func nullBool(v sql.Null[bool]) sql.NullBool {
	return sql.NullBool{Bool: v.V, Valid: v.Valid}
}

func nullTime(v sql.Null[time.Time]) sql.NullTime {
	return sql.NullTime{Time: v.V.UTC(), Valid: v.Valid}
}
