// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/rapidaai/voicevault/pkg/commons"
)

// Store provides operations to save and retrieve recordings and bookmarks.
//
// The capture/playback engine only persists finalized results and reads
// single records by id; it never queries by arbitrary predicate. List
// operations exist for the browsing layer on top.
type Store interface {
	// SaveRecording inserts a finalized recording and returns its id.
	SaveRecording(ctx context.Context, rec *Recording) (uint64, error)

	// GetRecording retrieves one recording by id, soft-deleted or not.
	GetRecording(ctx context.Context, id uint64) (*Recording, error)

	// ListRecordings returns all recordings outside the recycle bin, newest
	// first.
	ListRecordings(ctx context.Context) ([]Recording, error)

	// UpdateDuration patches a recording's duration after the fact (e.g.
	// when container metadata is more exact than the session accounting).
	UpdateDuration(ctx context.Context, id uint64, d time.Duration) error

	// SetTranscript stores transcription text for a recording.
	SetTranscript(ctx context.Context, id uint64, text string) error

	// SetFavorite toggles the favorite flag.
	SetFavorite(ctx context.Context, id uint64, favorite bool) error

	// MoveToRecycleBin soft-deletes a recording, stamping the deletion time
	// the retention sweep keys on.
	MoveToRecycleBin(ctx context.Context, id uint64) error

	// RestoreFromRecycleBin clears the soft-delete state.
	RestoreFromRecycleBin(ctx context.Context, id uint64) error

	// PurgeDeletedBefore hard-deletes recordings soft-deleted before cutoff
	// and returns the file paths of the purged rows so the caller can remove
	// the audio files. Bookmarks cascade with their recording.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// SaveBookmark inserts a marker and returns its id.
	SaveBookmark(ctx context.Context, b *Bookmark) (uint64, error)

	// ListBookmarks returns a recording's markers ordered by position.
	ListBookmarks(ctx context.Context, recordingID uint64) ([]Bookmark, error)

	// DeleteBookmark removes one marker.
	DeleteBookmark(ctx context.Context, id uint64) error
}

// Open opens (creating if needed) the sqlite database and migrates the
// schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Recording{}, &Bookmark{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

type sqliteStore struct {
	db     *gorm.DB
	logger commons.Logger
}

// NewStore creates a recording/bookmark store backed by sqlite.
func NewStore(db *gorm.DB, logger commons.Logger) Store {
	return &sqliteStore{db: db, logger: logger}
}

func (s *sqliteStore) SaveRecording(ctx context.Context, rec *Recording) (uint64, error) {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return 0, fmt.Errorf("failed to save recording %s: %w", rec.FileName, err)
	}
	s.logger.Infof("saved recording: id=%d file=%s duration=%dms size=%d",
		rec.Id, rec.FileName, rec.DurationMs, rec.FileSize)
	return rec.Id, nil
}

func (s *sqliteStore) GetRecording(ctx context.Context, id uint64) (*Recording, error) {
	var rec Recording
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, fmt.Errorf("recording not found: %d: %w", id, err)
	}
	return &rec, nil
}

func (s *sqliteStore) ListRecordings(ctx context.Context) ([]Recording, error) {
	var recs []Recording
	err := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("created_date DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	return recs, nil
}

func (s *sqliteStore) UpdateDuration(ctx context.Context, id uint64, d time.Duration) error {
	return s.updateField(ctx, id, "duration_ms", d.Milliseconds())
}

func (s *sqliteStore) SetTranscript(ctx context.Context, id uint64, text string) error {
	return s.updateField(ctx, id, "transcript", text)
}

func (s *sqliteStore) SetFavorite(ctx context.Context, id uint64, favorite bool) error {
	return s.updateField(ctx, id, "is_favorite", favorite)
}

func (s *sqliteStore) updateField(ctx context.Context, id uint64, field string, value interface{}) error {
	result := s.db.WithContext(ctx).Model(&Recording{}).
		Where("id = ?", id).
		Update(field, value)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s on recording %d: %w", field, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("recording not found: %d", id)
	}
	s.logger.Debugf("updated recording field: id=%d %s=%v", id, field, value)
	return nil
}

func (s *sqliteStore) MoveToRecycleBin(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Model(&Recording{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted":   true,
			"deleted_date": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to move recording %d to recycle bin: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("recording %d not found or already deleted", id)
	}
	s.logger.Debugf("moved recording to recycle bin: id=%d", id)
	return nil
}

func (s *sqliteStore) RestoreFromRecycleBin(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Model(&Recording{}).
		Where("id = ? AND is_deleted = ?", id, true).
		Updates(map[string]interface{}{
			"is_deleted":   false,
			"deleted_date": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to restore recording %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("recording %d not found in recycle bin", id)
	}
	s.logger.Debugf("restored recording from recycle bin: id=%d", id)
	return nil
}

func (s *sqliteStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var victims []Recording
	err := s.db.WithContext(ctx).
		Where("is_deleted = ? AND deleted_date < ?", true, cutoff).
		Find(&victims).Error
	if err != nil {
		return nil, fmt.Errorf("list purgeable recordings: %w", err)
	}
	if len(victims) == 0 {
		return nil, nil
	}

	paths := make([]string, 0, len(victims))
	ids := make([]uint64, 0, len(victims))
	for _, v := range victims {
		paths = append(paths, v.FilePath)
		ids = append(ids, v.Id)
	}

	// sqlite does not always enforce FK cascades; delete bookmarks explicitly,
	// in one transaction with their recordings so a failure leaves both
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recording_id IN ?", ids).Delete(&Bookmark{}).Error; err != nil {
			return fmt.Errorf("purge bookmarks: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&Recording{}).Error; err != nil {
			return fmt.Errorf("purge recordings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("purged %d recordings deleted before %s", len(ids), cutoff.Format(time.RFC3339))
	return paths, nil
}

func (s *sqliteStore) SaveBookmark(ctx context.Context, b *Bookmark) (uint64, error) {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return 0, fmt.Errorf("failed to save bookmark for recording %d: %w", b.RecordingID, err)
	}
	s.logger.Debugf("saved bookmark: id=%d recording=%d position=%dms", b.Id, b.RecordingID, b.PositionMs)
	return b.Id, nil
}

func (s *sqliteStore) ListBookmarks(ctx context.Context, recordingID uint64) ([]Bookmark, error) {
	var marks []Bookmark
	err := s.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("position_ms ASC").
		Find(&marks).Error
	if err != nil {
		return nil, fmt.Errorf("list bookmarks for recording %d: %w", recordingID, err)
	}
	return marks, nil
}

func (s *sqliteStore) DeleteBookmark(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Delete(&Bookmark{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete bookmark %d: %w", id, result.Error)
	}
	return nil
}
