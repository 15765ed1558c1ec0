// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is the metadata row for an uploaded object. The bytes live in object
// storage under StorageKey.
type File struct {
	// ID is the public file identifier and the one-time code subject.
	ID string
	// UserID is the owner of the file.
	UserID string

	// StorageKey is the object-storage key of the blob. Unique and immutable.
	StorageKey string
	// DisplayName is the original filename, used as the download filename.
	DisplayName string
	MimeType    string
	Size        int64

	// Geohash tags the upload location. Nil when none was supplied; such a
	// file can never pass the location check.
	Geohash *string

	CreatedAt time.Time
}

// GeohashMatches reports whether candidate equals the stored geohash byte
// for byte. A file without a stored geohash never matches.
func (f *File) GeohashMatches(candidate string) bool {
	return f.Geohash != nil && *f.Geohash == candidate
}
