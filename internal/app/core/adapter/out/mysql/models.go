package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID        string          `gorm:"primaryKey;size:255"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CreatedAt int64           `gorm:"autoCreateTime:milli"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() domain.Account {
	return domain.Account{ID: a.ID, Balance: a.Balance}
}

// sqlHistoryEntry 對應資料庫的 history 表
// Seq 自動遞增，同一帳戶依 Seq 排序即為寫入順序
type sqlHistoryEntry struct {
	Seq            int64           `gorm:"primaryKey;autoIncrement"`
	RefID          []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.HistoryEntry.ID
	AccountID      string          `gorm:"size:255;index"`
	Kind           uint8           `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CounterpartyID string          `gorm:"size:255"`
	OccurredAt     int64           `gorm:"not null"` // unix milli
}

func (*sqlHistoryEntry) TableName() string {
	return "history"
}

func newSQLHistoryEntry(e domain.HistoryEntry) sqlHistoryEntry {
	return sqlHistoryEntry{
		RefID:          e.ID[:],
		AccountID:      e.AccountID,
		Kind:           uint8(e.Kind),
		Amount:         e.Amount,
		CounterpartyID: e.CounterpartyID,
		OccurredAt:     e.Timestamp.UnixMilli(),
	}
}

func (e *sqlHistoryEntry) toDomain() (domain.HistoryEntry, error) {
	id, err := uuid.FromBytes(e.RefID)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	return domain.HistoryEntry{
		ID:             id,
		AccountID:      e.AccountID,
		Timestamp:      time.UnixMilli(e.OccurredAt).UTC(),
		Kind:           domain.EntryKind(e.Kind),
		Amount:         e.Amount,
		CounterpartyID: e.CounterpartyID,
	}, nil
}

// sqlUser 對應資料庫的 users 表
type sqlUser struct {
	Email     string `gorm:"primaryKey;size:255"`
	FirstName string `gorm:"size:255"`
	LastName  string `gorm:"size:255"`
	Status    uint8  `gorm:"not null"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}

func (*sqlUser) TableName() string {
	return "users"
}

func (u *sqlUser) toDomain() domain.User {
	return domain.User{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Status:    domain.UserStatus(u.Status),
	}
}

// AutoMigrate 建立或更新資料表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&sqlAccount{}, &sqlHistoryEntry{}, &sqlUser{})
}
