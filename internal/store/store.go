package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"outpost/internal/config"
)

// Store manages outpost persistence backed by SQLite. One Store is opened per
// process and shared by every component; individual reads and writes are their
// own implicit transactions.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the local database, applies the schema, and
// seeds the device's default sensors on first run.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.seedSensors(ctx, cfg.Device.ID); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// seedSensors inserts the device's default sensor set when the table is empty.
func (s *Store) seedSensors(ctx context.Context, deviceID string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sensors`).Scan(&count); err != nil {
		return fmt.Errorf("count sensors: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		name string
		kind string
	}{
		{"PIR Entry", SensorMotion},
		{"Pressure Mat", SensorPressure},
		{"Stop Button", SensorButton},
		{"Camera 1", SensorCamera},
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, def := range defaults {
		_, err := s.db.ExecContext(
			ctx,
			`INSERT INTO sensors (name, kind, device_id, active, created_at) VALUES (?, ?, ?, 1, ?)`,
			def.name, def.kind, deviceID, now,
		)
		if err != nil {
			return fmt.Errorf("seed sensor %q: %w", def.name, err)
		}
	}
	return nil
}

// SensorByKind returns the first active sensor of the given kind, or nil when
// none is registered.
func (s *Store) SensorByKind(ctx context.Context, kind string) (*Sensor, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, kind, device_id, active, created_at
         FROM sensors WHERE kind = ? AND active = 1 ORDER BY id LIMIT 1`,
		kind,
	)
	sensor, err := scanSensor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sensor by kind: %w", err)
	}
	return sensor, nil
}

// Sensors returns all registered sensors.
func (s *Store) Sensors(ctx context.Context) ([]*Sensor, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, kind, device_id, active, created_at FROM sensors ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	defer rows.Close()

	var sensors []*Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

func scanSensor(scanner interface{ Scan(dest ...any) error }) (*Sensor, error) {
	var (
		id         int64
		name       string
		kind       string
		deviceID   sql.NullString
		active     int64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &kind, &deviceID, &active, &createdRaw); err != nil {
		return nil, err
	}
	sensor := &Sensor{
		ID:       id,
		Name:     name,
		Kind:     kind,
		DeviceID: deviceID.String,
		Active:   active != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		sensor.CreatedAt = created
	}
	return sensor, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
