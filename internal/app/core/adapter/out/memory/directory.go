package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

// Directory 記憶體使用者資料
type Directory struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	journal Journal
}

// NewDirectory 建立 Directory，journal 可為 nil
func NewDirectory(journal Journal) *Directory {
	return &Directory{
		users:   make(map[string]domain.User),
		journal: journal,
	}
}

// CreateUser 新增使用者
func (d *Directory) CreateUser(ctx context.Context, user domain.User) (domain.CreateOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[user.Email]; ok {
		return domain.AlreadyExists, nil
	}
	if err := journalUser(d.journal, user); err != nil {
		return 0, err
	}
	d.users[user.Email] = user
	return domain.Created, nil
}

// SetStatus 更新使用者狀態
func (d *Directory) SetStatus(ctx context.Context, email string, status domain.UserStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[email]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Status = status
	if err := journalUser(d.journal, user); err != nil {
		return err
	}
	d.users[email] = user
	return nil
}

// GetUser 取得使用者
func (d *Directory) GetUser(ctx context.Context, email string) (domain.User, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[email]
	return user, ok, nil
}

// Eligibility 未註冊的使用者回傳 Unknown
func (d *Directory) Eligibility(ctx context.Context, id string) (domain.Eligibility, error) {
	user, ok, err := d.GetUser(ctx, id)
	if err != nil || !ok {
		return domain.EligibilityUnknown, err
	}
	return user.Eligibility(), nil
}

func (d *Directory) restore(user domain.User) {
	d.mu.Lock()
	d.users[user.Email] = user
	d.mu.Unlock()
}

var _ usecase.UserDirectory = (*Directory)(nil)
