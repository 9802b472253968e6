package archive

const createAirQualityTable = `
CREATE TABLE IF NOT EXISTS air_quality_readings (
	timestamp   DateTime64(3),
	pm25        Float64,
	pm10        Float64,
	no2         Float64,
	o3          Float64,
	co          Float64,
	aqi         Float64,
	temperature Nullable(Float64),
	humidity    Nullable(Float64)
) ENGINE = MergeTree()
ORDER BY timestamp
TTL toDateTime(timestamp) + INTERVAL 90 DAY
`

const createAlertsTable = `
CREATE TABLE IF NOT EXISTS alerts (
	timestamp DateTime64(3),
	alert_id  Int64,
	severity  LowCardinality(String),
	type      LowCardinality(String),
	parameter LowCardinality(String),
	value     Nullable(Float64),
	message   String,
	critical  Bool
) ENGINE = MergeTree()
ORDER BY (timestamp, alert_id)
`

// AllTables returns the DDL run by InitSchema, in order.
func AllTables() []string {
	return []string{createAirQualityTable, createAlertsTable}
}
