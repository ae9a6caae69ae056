package Models

import (
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the database and runs migrations. The path comes from the
// DB_PATH environment variable, defaulting to a local sqlite file.
func Connect() {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "database.db"
	}

	// TranslateError maps driver unique-constraint failures onto
	// gorm.ErrDuplicatedKey so racing submissions surface as duplicates.
	connection, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = connection

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
}

// Migrate runs AutoMigrate in dependency order. The composite unique indexes
// on task_events (task_id, event_type) and attendance_records
// (task_id, location_type) enforce the at-most-once invariants at the
// storage layer even if two writers race past the application check.
func Migrate(db *gorm.DB) error {
	// Base tables first
	if err := db.AutoMigrate(
		&User{},
		&DeviceToken{},
	); err != nil {
		return err
	}

	// Then everything hanging off a task
	return db.AutoMigrate(
		&Task{},
		&TaskEvent{},
		&AttendanceRecord{},
	)
}
