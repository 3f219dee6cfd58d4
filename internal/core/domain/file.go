package domain

import "time"

// FileMeta records that a file was uploaded. The bytes themselves are not kept.
type FileMeta struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploaded_by"`
	Timestamp  time.Time `json:"timestamp"`
}
