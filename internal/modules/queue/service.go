// Package queue is the durable review queue for generated content packs.
package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/content-machine/core/internal/models"
)

// ErrDuplicate is returned when a content hash is already queued.
var ErrDuplicate = errors.New("content already queued")

// ErrNotFound is returned when a content item id does not exist.
var ErrNotFound = errors.New("content item not found")

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Add inserts a new pack. A duplicate content hash maps the unique index
// violation to ErrDuplicate.
func (s *Service) Add(item *models.ContentItemModel) error {
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	if err := s.db.Create(item).Error; err != nil {
		if isDuplicateConstraintError(err) {
			return fmt.Errorf("%w: hash %s", ErrDuplicate, item.ContentHash)
		}
		return fmt.Errorf("queue add: %w", err)
	}
	return nil
}

func isDuplicateConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// Exists reports whether a content hash is already queued.
func (s *Service) Exists(hash string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ContentItemModel{}).
		Where("content_hash = ?", hash).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("queue exists: %w", err)
	}
	return count > 0, nil
}

// Pending returns the oldest pending items, up to limit (0 = no limit).
func (s *Service) Pending(limit int) ([]models.ContentItemModel, error) {
	tx := s.db.Where("status = ?", models.StatusPending).Order("created_at asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var items []models.ContentItemModel
	if err := tx.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("queue pending: %w", err)
	}
	return items, nil
}

// PendingCount returns the number of pending items.
func (s *Service) PendingCount() (int64, error) {
	var count int64
	err := s.db.Model(&models.ContentItemModel{}).
		Where("status = ?", models.StatusPending).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("queue pending count: %w", err)
	}
	return count, nil
}

// GetByID returns one item or ErrNotFound.
func (s *Service) GetByID(id string) (*models.ContentItemModel, error) {
	var item models.ContentItemModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("queue get: %w", err)
	}
	return &item, nil
}

// UpdateStatus transitions an item, stamping approved_at when it becomes
// approved.
func (s *Service) UpdateStatus(id string, status models.ContentStatus) error {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusPosted,
		models.StatusRejected, models.StatusExpired:
	default:
		return fmt.Errorf("invalid status %q", status)
	}

	updates := map[string]interface{}{"status": status}
	if status == models.StatusApproved {
		now := time.Now()
		updates["approved_at"] = &now
	}

	res := s.db.Model(&models.ContentItemModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("queue update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ExpireOldPending marks pending items older than maxAge as expired and
// returns how many were affected.
func (s *Service) ExpireOldPending(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := s.db.Model(&models.ContentItemModel{}).
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Update("status", models.StatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("queue expire: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stats counts items per status.
func (s *Service) Stats() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := s.db.Model(&models.ContentItemModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}

	stats := map[string]int64{
		string(models.StatusPending):  0,
		string(models.StatusApproved): 0,
		string(models.StatusPosted):   0,
		string(models.StatusRejected): 0,
		string(models.StatusExpired):  0,
	}
	var total int64
	for _, r := range rows {
		stats[r.Status] = r.Count
		total += r.Count
	}
	stats["total"] = total
	return stats, nil
}
