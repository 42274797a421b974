package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

// History MySQL 歷史紀錄
type History struct {
	db *gorm.DB
}

// NewHistory 建立 History
func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

// Append 新增一筆紀錄
func (h *History) Append(ctx context.Context, entry domain.HistoryEntry) error {
	row := newSQLHistoryEntry(entry)
	if err := h.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List 依 seq 排序，舊到新
func (h *History) List(ctx context.Context, accountID string) ([]domain.HistoryEntry, error) {
	var rows []sqlHistoryEntry
	err := h.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode history seq=%d: %w", rows[i].Seq, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var _ usecase.HistoryLog = (*History)(nil)
