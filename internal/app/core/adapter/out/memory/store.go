package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

// cell 單一帳戶，擁有自己的鎖
type cell struct {
	mu      sync.Mutex
	account domain.Account
	// 建立時 WAL 寫入失敗，已從索引移除
	gone bool
}

// Store 以每個帳戶一把 Mutex 實作的 AccountStore
//
// 結構:
//
//	cells: 帳戶 ID -> *cell，索引本身不加鎖
//	journal: 可選的 WAL
//	count: 帳戶數量
type Store struct {
	cells   sync.Map // map[string]*cell
	journal Journal
	count   atomic.Int64
}

// StoreOption Store 設定
type StoreOption func(*Store)

// WithJournal 每次提交都寫入 WAL
func WithJournal(j Journal) StoreOption {
	return func(s *Store) {
		s.journal = j
	}
}

// NewStore 建立 Store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 建立帳戶
// 新的 cell 在放入索引前就先上鎖，WAL 寫完之前其他人無法看到它的狀態
// 同時建立同一個 ID 時，後到的一方等待先到的 cell 解鎖，WAL 失敗 (gone) 則重試
func (s *Store) Create(ctx context.Context, id string) (domain.CreateOutcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for {
		c := &cell{account: domain.NewAccount(id)}
		c.mu.Lock()
		v, loaded := s.cells.LoadOrStore(id, c)
		if loaded {
			c.mu.Unlock()
			existing := v.(*cell)
			existing.mu.Lock()
			gone := existing.gone
			existing.mu.Unlock()
			if gone {
				continue
			}
			return domain.AlreadyExists, nil
		}

		err := journalAccount(s.journal, c.account)
		if err != nil {
			c.gone = true
			s.cells.CompareAndDelete(id, c)
			c.mu.Unlock()
			return 0, err
		}
		s.count.Add(1)
		c.mu.Unlock()
		return domain.Created, nil
	}
}

// Read 讀取帳戶快照
func (s *Store) Read(ctx context.Context, id string) (domain.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, false, err
	}
	c, ok := s.load(id)
	if !ok {
		return domain.Account{}, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return domain.Account{}, false, nil
	}
	return c.account, true, nil
}

// Update 在帳戶的鎖內執行 mutate
func (s *Store) Update(ctx context.Context, id string, mutate domain.Mutation) (domain.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.UpdateResult{}, err
	}
	c, ok := s.load(id)
	if !ok {
		return domain.Missing(), nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return domain.Missing(), nil
	}

	res, err := apply(s.journal, c.account, mutate)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if res.Status == domain.UpdateApplied {
		c.account = res.Account
	}
	return res, nil
}

// Restore 由 WAL 回復帳戶狀態，不寫 WAL
// 只在開始服務前 (單執行緒) 呼叫
func (s *Store) Restore(account domain.Account) {
	if v, ok := s.cells.Load(account.ID); ok {
		c := v.(*cell)
		c.mu.Lock()
		c.account = account
		c.mu.Unlock()
		return
	}
	s.cells.Store(account.ID, &cell{account: account})
	s.count.Add(1)
}

// Len 帳戶數量
func (s *Store) Len() int {
	return int(s.count.Load())
}

func (s *Store) load(id string) (*cell, bool) {
	v, ok := s.cells.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*cell), true
}

var _ usecase.AccountStore = (*Store)(nil)
