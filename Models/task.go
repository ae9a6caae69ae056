package Models

import (
	"time"

	"gorm.io/gorm"

	"Kestrel/Protocol"
)

const (
	ShiftMorning   = "MORNING"
	ShiftAfternoon = "AFTERNOON"
)

const (
	LocationPickup      = "PICKUP"
	LocationDestination = "DESTINATION"
)

// Task is one sealed-pack delivery assignment. Status moves forward only;
// the suspicious flag is an advisory overlay and never blocks events.
type Task struct {
	gorm.Model
	PackCode        string     `json:"pack_code" gorm:"uniqueIndex;type:varchar(40);not null"`
	SourceName      string     `json:"source_name"`
	SourceLat       *float64   `json:"source_lat"`
	SourceLng       *float64   `json:"source_lng"`
	DestinationName string     `json:"destination_name"`
	DestinationLat  *float64   `json:"destination_lat"`
	DestinationLng  *float64   `json:"destination_lng"`
	AssignedUserID  uint       `json:"assigned_user_id" gorm:"index;not null"`
	StartTime       time.Time  `json:"start_time" gorm:"not null"`
	EndTime         time.Time  `json:"end_time" gorm:"not null"`
	ExamType        string     `json:"exam_type"`
	DoubleShift     bool       `json:"double_shift"`
	ShiftType       string     `json:"shift_type" gorm:"type:varchar(20)"`
	GeofenceRadius  *float64   `json:"geofence_radius"` // meters; nil means the configured default
	Status          string     `json:"status" gorm:"type:varchar(20);default:PENDING;not null"`
	Suspicious      bool       `json:"suspicious" gorm:"default:false"`

	Events     []TaskEvent        `json:"events,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Attendance []AttendanceRecord `json:"attendance,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// IsAfternoonShift reports whether the shortened afternoon order applies.
func (t *Task) IsAfternoonShift() bool {
	return t.DoubleShift && t.ShiftType == ShiftAfternoon
}

// RadiusOrDefault resolves the geofence radius for attendance checks.
func (t *Task) RadiusOrDefault(def float64) float64 {
	if t.GeofenceRadius != nil && *t.GeofenceRadius > 0 {
		return *t.GeofenceRadius
	}
	return def
}

// TargetCoordinates resolves the attendance target for a location type.
// Returns false when the task has no coordinates for that side.
func (t *Task) TargetCoordinates(locationType string) (lat, lng float64, ok bool) {
	switch locationType {
	case LocationPickup:
		if t.SourceLat != nil && t.SourceLng != nil {
			return *t.SourceLat, *t.SourceLng, true
		}
	case LocationDestination:
		if t.DestinationLat != nil && t.DestinationLng != nil {
			return *t.DestinationLat, *t.DestinationLng, true
		}
	}
	return 0, 0, false
}

// TaskEvent is one immutable proof-of-custody record. The unique composite
// index backs the at-most-once guarantee per (task, event type); rows are
// never updated or deleted.
type TaskEvent struct {
	gorm.Model
	TaskID     uint      `json:"task_id" gorm:"uniqueIndex:idx_task_event_type;not null"`
	EventType  string    `json:"event_type" gorm:"uniqueIndex:idx_task_event_type;type:varchar(40);not null"`
	ImagePath  string    `json:"image_path" gorm:"not null"`
	ThumbPath  string    `json:"thumb_path"`
	ImageHash  string    `json:"image_hash" gorm:"type:varchar(64);not null"` // server-computed sha256
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null"` // server clock, authoritative
}

// AttendanceRecord is one geo-fenced check-in. Being outside the geofence
// does not reject the record; it is stored with within_geofence=false for
// operator review. Distance and within_geofence are nil when the task has no
// target coordinates for the location.
type AttendanceRecord struct {
	gorm.Model
	TaskID         uint      `json:"task_id" gorm:"uniqueIndex:idx_task_location;not null"`
	UserID         uint      `json:"user_id" gorm:"index"`
	LocationType   string    `json:"location_type" gorm:"uniqueIndex:idx_task_location;type:varchar(20);not null"`
	ImagePath      string    `json:"image_path" gorm:"not null"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	WithinGeofence *bool     `json:"within_geofence"`
	DistanceMeters *float64  `json:"distance_meters"`
	RecordedAt     time.Time `json:"recorded_at" gorm:"not null"`
}

// CompletedEventTypes loads the set of event types already recorded for a task.
func CompletedEventTypes(db *gorm.DB, taskID uint) (map[Protocol.EventType]bool, error) {
	var types []string
	if err := db.Model(&TaskEvent{}).Where("task_id = ?", taskID).Pluck("event_type", &types).Error; err != nil {
		return nil, err
	}
	completed := make(map[Protocol.EventType]bool, len(types))
	for _, t := range types {
		completed[Protocol.EventType(t)] = true
	}
	return completed, nil
}
