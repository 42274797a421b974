package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

// Store 以 MySQL 實作 AccountStore 與 PairUpdater
// 單一帳戶的原子性由 SELECT ... FOR UPDATE 悲觀鎖保證
type Store struct {
	db *gorm.DB
	// innodb_lock_wait_timeout (秒)，0 代表使用資料庫預設
	lockWaitTimeout int
}

// Option Store 設定
type Option func(*Store)

// WithLockWaitTimeout 設定每個交易的列鎖等待上限 (秒)
func WithLockWaitTimeout(seconds int) Option {
	return func(s *Store) {
		s.lockWaitTimeout = seconds
	}
}

// NewStore 建立 Store
//
// 參數:
//
//	db: GORM 實例 (pkg/mysql.Client.DB())
//	opts: 選項
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 建立帳戶，主鍵衝突時不做事並回傳 AlreadyExists
func (s *Store) Create(ctx context.Context, id string) (domain.CreateOutcome, error) {
	account := sqlAccount{ID: id, Balance: domain.NewAccount(id).Balance}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&account)
	if res.Error != nil {
		return 0, fmt.Errorf("insert account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.AlreadyExists, nil
	}
	return domain.Created, nil
}

// Read 讀取帳戶 (不加鎖)
func (s *Store) Read(ctx context.Context, id string) (domain.Account, bool, error) {
	var row sqlAccount
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("select account: %w", err)
	}
	return row.toDomain(), true, nil
}

// Update 在交易內鎖定帳戶列後執行 mutate
func (s *Store) Update(ctx context.Context, id string, mutate domain.Mutation) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setLockWaitTimeout(tx); err != nil {
			return err
		}
		row, found, err := lockAccount(tx, id)
		if err != nil {
			return err
		}
		if !found {
			result = domain.Missing()
			return nil
		}

		next, err := mutate(row.toDomain())
		if err != nil {
			result = domain.Rejected(err)
			return nil
		}
		if err := tx.Model(row).Update("balance", next.Balance).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		next.ID = row.ID
		result = domain.Applied(next)
		return nil
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	return result, nil
}

// UpdatePair 轉帳：依 First, Second 順序鎖定兩列，扣款、入帳與歷史紀錄同一個交易提交
// 任何一步失敗整個交易回滾，不會出現只扣款的狀態
func (s *Store) UpdatePair(ctx context.Context, req usecase.PairUpdate) (domain.TransferResult, error) {
	var result domain.TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.setLockWaitTimeout(tx); err != nil {
			return err
		}

		locked := make(map[string]*sqlAccount, 2)
		for _, id := range []string{req.First, req.Second} {
			row, found, err := lockAccount(tx, id)
			if err != nil {
				return err
			}
			if !found {
				side := domain.SideTo
				if id == req.From {
					side = domain.SideFrom
				}
				return domain.NotFound(id, side)
			}
			locked[id] = row
		}

		from, err := domain.Debit(req.Amount)(locked[req.From].toDomain())
		if err != nil {
			return err
		}
		to, err := domain.Credit(req.Amount)(locked[req.To].toDomain())
		if err != nil {
			return err
		}

		if err := tx.Model(locked[req.From]).Update("balance", from.Balance).Error; err != nil {
			return fmt.Errorf("update balance %s: %w", req.From, err)
		}
		if err := tx.Model(locked[req.To]).Update("balance", to.Balance).Error; err != nil {
			return fmt.Errorf("update balance %s: %w", req.To, err)
		}

		if len(req.Entries) > 0 {
			rows := make([]sqlHistoryEntry, 0, len(req.Entries))
			for _, e := range req.Entries {
				rows = append(rows, newSQLHistoryEntry(e))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
		}

		result = domain.TransferResult{From: from, To: to}
		return nil
	})
	if err != nil {
		return domain.TransferResult{}, err
	}
	return result, nil
}

func (s *Store) setLockWaitTimeout(tx *gorm.DB) error {
	if s.lockWaitTimeout <= 0 {
		return nil
	}
	if err := tx.Exec("SET SESSION innodb_lock_wait_timeout = ?", s.lockWaitTimeout).Error; err != nil {
		return fmt.Errorf("set lock wait timeout: %w", err)
	}
	return nil
}

// lockAccount 取得帳號 悲觀鎖
func lockAccount(tx *gorm.DB, id string) (*sqlAccount, bool, error) {
	var row sqlAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock account %s: %w", id, err)
	}
	return &row, true, nil
}

var (
	_ usecase.AccountStore = (*Store)(nil)
	_ usecase.PairUpdater  = (*Store)(nil)
)
