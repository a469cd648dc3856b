// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_store

import (
	"time"

	"gorm.io/gorm"
)

// Recording is one captured audio file. Created when a recording session
// finalizes; duration and transcript are mutated after the fact; deletion is
// soft (recycle bin) until the retention sweep hard-deletes the row.
type Recording struct {
	Id          uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FileName    string     `json:"fileName" gorm:"column:file_name;type:varchar(255);not null"`
	FilePath    string     `json:"filePath" gorm:"column:file_path;type:varchar(1024);not null"`
	DurationMs  int64      `json:"durationMs" gorm:"column:duration_ms;not null;default:0"`
	FileSize    int64      `json:"fileSize" gorm:"column:file_size;not null;default:0"`
	CreatedDate time.Time  `json:"createdDate" gorm:"column:created_date;not null;<-:create"`
	CategoryID  *uint64    `json:"categoryId" gorm:"column:category_id"`
	IsFavorite  bool       `json:"isFavorite" gorm:"column:is_favorite;not null;default:false"`
	IsDeleted   bool       `json:"isDeleted" gorm:"column:is_deleted;not null;default:false"`
	DeletedDate *time.Time `json:"deletedDate" gorm:"column:deleted_date"`
	Transcript  string     `json:"transcript" gorm:"column:transcript;type:text;not null;default:''"`
	Bitrate     int        `json:"bitrate" gorm:"column:bitrate;not null;default:0"`
	SampleRate  int        `json:"sampleRate" gorm:"column:sample_rate;not null;default:0"`

	Bookmarks []Bookmark `json:"-" gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
}

func (Recording) TableName() string {
	return "recordings"
}

func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedDate.IsZero() {
		r.CreatedDate = time.Now()
	}
	return nil
}

// Duration returns the recording length.
func (r *Recording) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// Bookmark is a marker at a millisecond offset inside a recording. Deleting
// the recording cascades to its bookmarks.
type Bookmark struct {
	Id          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID uint64    `json:"recordingId" gorm:"column:recording_id;not null;index"`
	PositionMs  int64     `json:"positionMs" gorm:"column:position_ms;not null"`
	CreatedDate time.Time `json:"createdDate" gorm:"column:created_date;not null;<-:create"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.CreatedDate.IsZero() {
		b.CreatedDate = time.Now()
	}
	return nil
}

// Position returns the marker offset.
func (b *Bookmark) Position() time.Duration {
	return time.Duration(b.PositionMs) * time.Millisecond
}
