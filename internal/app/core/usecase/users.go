package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
)

// Users 使用者註冊與停用
type Users struct {
	dir    UserDirectory
	logger *logrus.Entry
}

// NewUsers 建立 Users，logger 可為 nil
func NewUsers(dir UserDirectory, logger *logrus.Entry) *Users {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger()).WithField("component", "users")
	}
	return &Users{dir: dir, logger: logger}
}

// Register 註冊使用者，已存在時回傳 AlreadyExists
func (u *Users) Register(ctx context.Context, req domain.RegisterUserRequest) (domain.CreateOutcome, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	outcome, err := u.dir.CreateUser(ctx, domain.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Status:    domain.UserStatusActivated,
	})
	if err != nil {
		return 0, fmt.Errorf("register user: %w", err)
	}
	u.logger.WithFields(logrus.Fields{
		"user":    domain.RedactEmail(req.Email),
		"outcome": outcome.String(),
	}).Debugf("register %s", req)
	return outcome, nil
}

// Deactivate 停用使用者，之後該帳戶所有異動操作都會被拒絕
func (u *Users) Deactivate(ctx context.Context, email string) error {
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}
	if err := u.dir.SetStatus(ctx, email, domain.UserStatusDeactivated); err != nil {
		return err
	}
	u.logger.WithField("user", domain.RedactEmail(email)).Info("user deactivated")
	return nil
}

// Eligibility 實作 Eligibility，讓 Ledger 可以直接使用
func (u *Users) Eligibility(ctx context.Context, id string) (domain.Eligibility, error) {
	return u.dir.Eligibility(ctx, id)
}

var _ Eligibility = (*Users)(nil)
