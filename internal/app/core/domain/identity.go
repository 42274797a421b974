package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Eligibility 使用者是否可以操作帳戶
type Eligibility uint8

const (
	EligibilityUnknown Eligibility = iota
	EligibilityActive
	EligibilityInactive
)

func (e Eligibility) String() string {
	switch e {
	case EligibilityActive:
		return "active"
	case EligibilityInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Err 將資格轉成錯誤，Active 回傳 nil
func (e Eligibility) Err(id string) error {
	switch e {
	case EligibilityActive:
		return nil
	case EligibilityInactive:
		return fmt.Errorf("%w: id=%s", ErrIdentityInactive, id)
	default:
		return fmt.Errorf("%w: id=%s", ErrIdentityUnknown, id)
	}
}

// UserStatus 使用者狀態
type UserStatus uint8

const (
	UserStatusActivated   UserStatus = 1
	UserStatusDeactivated UserStatus = 2
)

// User 使用者資料，Email 即帳戶 ID
type User struct {
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Status    UserStatus `json:"status"`
}

// Eligibility 由使用者狀態推得資格
func (u User) Eligibility() Eligibility {
	if u.Status == UserStatusDeactivated {
		return EligibilityInactive
	}
	return EligibilityActive
}

// 基本 email 檢查，只要求 "@" 前後皆有內容
var emailPattern = regexp.MustCompile(`^(.+)@(\S+)$`)

// RegisterUserRequest 註冊使用者請求
type RegisterUserRequest struct {
	Email     string
	FirstName string
	LastName  string
}

// ValidateEmail email 同時也是帳戶 ID，兩種檢查都要通過
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return ValidateAccountID(email)
}

// RedactEmail 給 log 用，只保留第一個字元與網域: "alice@x.io" -> "a***@x.io"
func RedactEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	first, _ := utf8.DecodeRuneInString(email)
	return string(first) + "***" + email[at:]
}

// Validate 檢查 email 格式
func (r RegisterUserRequest) Validate() error {
	return ValidateEmail(r.Email)
}

// String 不輸出 email
func (r RegisterUserRequest) String() string {
	return fmt.Sprintf("RegisterUserRequest{first_name=%s, last_name=%s}", r.FirstName, r.LastName)
}
