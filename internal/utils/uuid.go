package utils

import "github.com/google/uuid"

// NewTimeOrderedID returns a UUIDv7 string. Version 7 ids sort by creation
// time, which keeps SQLite primary key inserts append-mostly and makes trace
// ids roughly sortable in logs. A random UUIDv4 is returned when the clock
// source fails.
func NewTimeOrderedID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}

// RecordIDs issues ids for new health records.
type RecordIDs struct{}

func (RecordIDs) Generate() string {
	return NewTimeOrderedID()
}
