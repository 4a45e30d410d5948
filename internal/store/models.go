package store

import "time"

// SyncStatus represents the backend acknowledgment state of a local record.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSuccess SyncStatus = "success"
	StatusFailed  SyncStatus = "failed"
)

// Table names used as the sync_tracking partition key.
const (
	TableEvents = "events"
	TableMedia  = "media"
)

// SyncTables lists the tables covered by the sync ledger, in sweep order.
var SyncTables = []string{TableEvents, TableMedia}

// Sensor describes a physical input attached to this device.
type Sensor struct {
	ID        int64
	Name      string
	Kind      string
	DeviceID  string
	Active    bool
	CreatedAt time.Time
}

// Sensor kinds as reported by the message bus.
const (
	SensorMotion   = "motion"
	SensorButton   = "button"
	SensorPressure = "pressure"
	SensorCamera   = "camera"
)

// Event is a recorded sensor trigger. Rows are written once by the producer
// and never mutated or deleted by the sync engine.
type Event struct {
	ID           int64
	ExternalID   string
	OccurredAt   time.Time
	State        int
	SensorID     int64
	MetadataJSON string
	CreatedAt    time.Time
}

// Media is a captured video payload, optionally linked to the event that
// triggered it. The event reference is weak: deleting an event nulls it.
type Media struct {
	ID              int64
	EventID         *int64
	SensorID        int64
	Data            []byte
	SizeBytes       int64
	DurationSeconds int
	CapturedAt      time.Time
	CameraIndex     int
	Resolution      string
	Codec           string
}

// SyncEntry is one row of the sync_tracking ledger. At most one entry exists
// per (TableName, LocalID); success entries are terminal.
type SyncEntry struct {
	ID            int64
	TableName     string
	LocalID       int64
	RemoteID      *int64
	LastAttemptAt time.Time
	Status        SyncStatus
	ErrorDetail   string
}

// EventRecord is an event joined with its sensor's descriptive attributes.
// Denormalization happens at read time; nothing is stored denormalized.
type EventRecord struct {
	Event
	SensorName string
	SensorKind string
}

// MediaRecord is a media row joined with its sensor and, when linked, the
// originating event's external identifier.
type MediaRecord struct {
	Media
	SensorName      string
	EventExternalID string
}

// SyncStat is one cell of the ledger status breakdown.
type SyncStat struct {
	TableName string
	Status    SyncStatus
	Count     int
}
