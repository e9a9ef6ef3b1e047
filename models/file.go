package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FileType is the kind of record stored in the files table.
type FileType string

const (
	TypeFolder FileType = "folder"
	TypeFile   FileType = "file"
	TypeImage  FileType = "image"
)

// ValidFileType reports whether t is one of the accepted upload types.
func ValidFileType(t FileType) bool {
	switch t {
	case TypeFolder, TypeFile, TypeImage:
		return true
	}
	return false
}

// File represents a file or folder record. Folders carry no storage path;
// everything else must have one. A nil ParentID means the record lives at
// the root — nil can never collide with a real id, unlike a zero sentinel.
type File struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	Name        string     `json:"name"`
	Type        FileType   `json:"type"`
	ParentID    *uuid.UUID `json:"-"`
	IsPublic    bool       `json:"isPublic"`
	StoragePath string     `json:"-"` // never expose storage locations
	CreatedAt   time.Time  `json:"createdAt"`
}

// MarshalJSON renders ParentID as "0" for root records, matching the wire
// format clients already depend on.
func (f File) MarshalJSON() ([]byte, error) {
	type alias File
	out := struct {
		alias
		ParentID string `json:"parentId"`
	}{alias: alias(f), ParentID: "0"}
	if f.ParentID != nil {
		out.ParentID = f.ParentID.String()
	}
	return json.Marshal(out)
}
