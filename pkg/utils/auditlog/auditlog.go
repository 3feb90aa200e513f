// Package auditlog records user-attributed events in the database.
package auditlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var LogsTableName = "logs"

// LogLevel represents the severity of a log message
type LogLevel string

const (
	INFO  LogLevel = "info"
	ALERT LogLevel = "alert"
	ERROR LogLevel = "error"
)

// Log represents an audit log entry in the database. UserID is nil for
// events not attributable to an account.
type Log struct {
	ID        uint32    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	UserID    *string   `gorm:"index"`
	Level     LogLevel  `gorm:"index"`
	Message   string
	Fields    datatypes.JSON `gorm:"type:jsonb"`
}

// TableName overrides the table name used by Log
func (l *Log) TableName() string {
	return LogsTableName
}

// Logger writes audit entries through GORM
type Logger struct {
	db *gorm.DB
}

// New creates a new Logger instance
func New(db *gorm.DB) (*Logger, error) {
	if err := db.Table(LogsTableName).AutoMigrate(&Log{}); err != nil {
		return nil, fmt.Errorf("failed to migrate Log for table %s: %v", LogsTableName, err)
	}
	return &Logger{db: db}, nil
}

// log inserts a log entry into the database
func (l *Logger) log(level LogLevel, userID *string, message string, fields map[string]interface{}) error {
	var fieldsJSON datatypes.JSON
	if len(fields) > 0 {
		jsonBytes, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %v", err)
		}
		fieldsJSON = datatypes.JSON(jsonBytes)
	}

	entry := Log{
		Timestamp: time.Now(),
		UserID:    userID,
		Level:     level,
		Message:   message,
		Fields:    fieldsJSON,
	}

	if err := l.db.Table(LogsTableName).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to insert log entry: %v", err)
	}

	return nil
}

// Info logs an info audit event
func (l *Logger) Info(userID *string, message string, fields map[string]interface{}) {
	if err := l.log(INFO, userID, message, fields); err != nil {
		zaplogger.Error("Failed to write audit log", zaplogger.Fields{"error": err.Error()})
	}
}

// Alert logs an alert audit event
func (l *Logger) Alert(userID *string, message string, fields map[string]interface{}) {
	if err := l.log(ALERT, userID, message, fields); err != nil {
		zaplogger.Error("Failed to write audit log", zaplogger.Fields{"error": err.Error()})
	}
}

// Error logs an error audit event
func (l *Logger) Error(userID *string, message string, fields map[string]interface{}) {
	if err := l.log(ERROR, userID, message, fields); err != nil {
		zaplogger.Error("Failed to write audit log", zaplogger.Fields{"error": err.Error()})
	}
}
