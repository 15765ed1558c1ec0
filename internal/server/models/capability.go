package models

import "time"

// RetrievalCapability is a presigned, time-limited GET URL for one object.
type RetrievalCapability struct {
	URL       string
	ObjectKey string
	ExpiresAt time.Time
	Filename  string
}
