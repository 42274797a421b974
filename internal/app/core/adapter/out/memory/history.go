package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

type historyCell struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

// History 記憶體歷史紀錄，每個帳戶一個只能追加的 slice
type History struct {
	cells   sync.Map // map[string]*historyCell
	journal Journal
}

// NewHistory 建立 History，journal 可為 nil
func NewHistory(journal Journal) *History {
	return &History{journal: journal}
}

// Append 追加一筆紀錄
func (h *History) Append(ctx context.Context, entry domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := h.cell(entry.AccountID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := journalEntry(h.journal, entry); err != nil {
		return err
	}
	c.entries = append(c.entries, entry)
	return nil
}

// List 回傳複本，舊到新
func (h *History) List(ctx context.Context, accountID string) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := h.cells.Load(accountID)
	if !ok {
		return []domain.HistoryEntry{}, nil
	}
	c := v.(*historyCell)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.HistoryEntry, len(c.entries))
	copy(out, c.entries)
	return out, nil
}

func (h *History) restore(entry domain.HistoryEntry) {
	c := h.cell(entry.AccountID)
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

func (h *History) cell(accountID string) *historyCell {
	if v, ok := h.cells.Load(accountID); ok {
		return v.(*historyCell)
	}
	v, _ := h.cells.LoadOrStore(accountID, &historyCell{})
	return v.(*historyCell)
}

var _ usecase.HistoryLog = (*History)(nil)
