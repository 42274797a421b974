package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
)

// AccountStore 帳戶儲存層
// 每個帳戶 ID 的 Update 為原子操作，不同帳戶之間可平行處理
type AccountStore interface {
	// Create 建立餘額為 0 的帳戶，已存在時回傳 AlreadyExists
	Create(ctx context.Context, id string) (domain.CreateOutcome, error)
	// Read 讀取帳戶快照
	Read(ctx context.Context, id string) (domain.Account, bool, error)
	// Update 在帳戶的臨界區內執行 mutate
	// error 只用於基礎設施錯誤，業務拒絕放在 UpdateResult
	Update(ctx context.Context, id string, mutate domain.Mutation) (domain.UpdateResult, error)
}

// PairUpdater 可選介面：儲存層能在同一個交易內依序鎖定兩個帳戶
// MySQL 實作此介面，轉帳的扣款、入帳與歷史紀錄一起提交
type PairUpdater interface {
	UpdatePair(ctx context.Context, req PairUpdate) (domain.TransferResult, error)
}

// PairUpdate 轉帳在單一交易內需要的所有資料
type PairUpdate struct {
	// 依 domain.LockOrder 排序後的鎖定順序
	First  string
	Second string
	From   string
	To     string
	Amount decimal.Decimal
	// 與餘額一起提交的歷史紀錄
	Entries []domain.HistoryEntry
}

// HistoryLog 只能新增的歷史紀錄
type HistoryLog interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	// List 依寫入順序回傳 (舊到新)，回傳的 slice 為複本
	List(ctx context.Context, accountID string) ([]domain.HistoryEntry, error)
}

// Eligibility 身分服務，判斷使用者是否可操作帳戶
type Eligibility interface {
	Eligibility(ctx context.Context, id string) (domain.Eligibility, error)
}

// UserDirectory 使用者資料儲存
type UserDirectory interface {
	Eligibility
	CreateUser(ctx context.Context, user domain.User) (domain.CreateOutcome, error)
	// SetStatus 使用者不存在時回傳 domain.ErrUserNotFound
	SetStatus(ctx context.Context, email string, status domain.UserStatus) error
	GetUser(ctx context.Context, email string) (domain.User, bool, error)
}
