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

// Directory 使用者資料 (users 表)
type Directory struct {
	db *gorm.DB
}

// NewDirectory 建立 Directory
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// CreateUser 新增使用者，email 重複時回傳 AlreadyExists
func (d *Directory) CreateUser(ctx context.Context, user domain.User) (domain.CreateOutcome, error) {
	row := sqlUser{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Status:    uint8(user.Status),
	}
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("insert user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.AlreadyExists, nil
	}
	return domain.Created, nil
}

// SetStatus 更新使用者狀態
func (d *Directory) SetStatus(ctx context.Context, email string, status domain.UserStatus) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sqlUser
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("email = ?", email).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("select user: %w", err)
		}
		if err := tx.Model(&row).Update("status", uint8(status)).Error; err != nil {
			return fmt.Errorf("update user status: %w", err)
		}
		return nil
	})
}

// GetUser 取得使用者
func (d *Directory) GetUser(ctx context.Context, email string) (domain.User, bool, error) {
	var row sqlUser
	err := d.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), true, nil
}

// Eligibility 未註冊的使用者回傳 Unknown
func (d *Directory) Eligibility(ctx context.Context, id string) (domain.Eligibility, error) {
	user, found, err := d.GetUser(ctx, id)
	if err != nil || !found {
		return domain.EligibilityUnknown, err
	}
	return user.Eligibility(), nil
}

var _ usecase.UserDirectory = (*Directory)(nil)
