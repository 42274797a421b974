package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAccountID 帳戶 ID 格式錯誤
	ErrInvalidAccountID = errors.New("invalid account id")

	// ErrSameAccount 轉出與轉入帳戶相同
	ErrSameAccount = errors.New("from and to account are the same")

	// ErrInvalidEmail 使用者 email 格式錯誤
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrUserNotFound 找不到使用者
	ErrUserNotFound = errors.New("user not found")

	// ErrIdentityInactive 使用者已停用
	ErrIdentityInactive = errors.New("user is inactive")

	// ErrIdentityUnknown 使用者不存在，不得操作帳戶
	ErrIdentityUnknown = errors.New("user is unknown")

	// ErrFatalInconsistency 扣款已提交但入帳失敗，無法在程序內回復
	ErrFatalInconsistency = errors.New("fatal inconsistency: debit committed without credit")

	// ErrJournalWriteFailed WAL 寫入失敗
	ErrJournalWriteFailed = errors.New("journal write failed")
)

// Side 標示轉帳中是哪一方
type Side uint8

const (
	SideNone Side = iota
	SideFrom
	SideTo
)

func (s Side) String() string {
	switch s {
	case SideFrom:
		return "from"
	case SideTo:
		return "to"
	default:
		return ""
	}
}

// AccountNotFoundError 帶有帳戶 ID 與轉帳方向的 ErrAccountNotFound
type AccountNotFoundError struct {
	ID   string
	Side Side
}

func (e *AccountNotFoundError) Error() string {
	if e.Side == SideNone {
		return fmt.Sprintf("account not found: id=%s", e.ID)
	}
	return fmt.Sprintf("account not found: id=%s side=%s", e.ID, e.Side)
}

// Is 讓 errors.Is(err, ErrAccountNotFound) 成立
func (e *AccountNotFoundError) Is(target error) bool {
	return target == ErrAccountNotFound
}

// NotFound 建立 AccountNotFoundError
func NotFound(id string, side Side) error {
	return &AccountNotFoundError{ID: id, Side: side}
}

// Category 錯誤分類，呼叫端依此決定回應與是否重試
type Category uint8

const (
	CategoryNone Category = iota
	// 呼叫端的錯誤，不重試
	CategoryValidation
	// 參照到不存在的帳戶或使用者
	CategoryNotFound
	// 業務規則 (餘額不足)，狀態未變，可調整後重試
	CategoryBusinessRule
	// 使用者停用或未知
	CategoryForbidden
	// 扣款後入帳失敗
	CategoryFatal
	// 儲存層或 I/O 錯誤
	CategoryInfrastructure
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryValidation:
		return "validation"
	case CategoryNotFound:
		return "not_found"
	case CategoryBusinessRule:
		return "business_rule"
	case CategoryForbidden:
		return "forbidden"
	case CategoryFatal:
		return "fatal"
	default:
		return "infrastructure"
	}
}

// Classify 將錯誤歸類，未知錯誤一律視為基礎設施錯誤
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrFatalInconsistency):
		return CategoryFatal
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidAccountID),
		errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrInvalidEmail):
		return CategoryValidation
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrUserNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return CategoryBusinessRule
	case errors.Is(err, ErrIdentityInactive), errors.Is(err, ErrIdentityUnknown):
		return CategoryForbidden
	default:
		return CategoryInfrastructure
	}
}
