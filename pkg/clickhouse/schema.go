package clickhouse

import "fmt"

// Schema returns the DDL for the map output tables in db.
// Candle input tables are owned by the ingestion side and not created here.
func Schema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.map_runs (
    run_id        String,
    started_at    DateTime64(3, 'UTC'),
    finished_at   DateTime64(3, 'UTC'),
    from_date     Date,
    to_date       Date,
    diagnostics   String,
    summary       String
) ENGINE = MergeTree
ORDER BY (started_at, run_id)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.variant_map (
    run_id           String,
    variant          String,
    asia_regime      LowCardinality(String),
    london_sweep     LowCardinality(String),
    transition_pos   LowCardinality(String),
    ny_pos           LowCardinality(String),
    n                UInt32,
    first_high_pct   Float64,
    first_low_pct    Float64,
    sweep_both_pct   Float64,
    fail_pct         Float64,
    median_pen_high  Nullable(Float64),
    median_pen_low   Nullable(Float64),
    reliability      LowCardinality(String)
) ENGINE = MergeTree
ORDER BY (run_id, variant)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_labels (
    run_id             String,
    date               Date,
    variant            String,
    asia_range         Float64,
    london_high        Float64,
    london_low         Float64,
    first_side         LowCardinality(String),
    first_touch        Nullable(DateTime64(3, 'UTC')),
    both_flag          UInt8,
    fail_flag          UInt8,
    median_penetration Nullable(Float64)
) ENGINE = MergeTree
ORDER BY (run_id, date)`, db),
	}
}
