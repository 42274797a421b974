package domain

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxAccountIDLength 帳戶 ID 最大長度 (對應資料庫欄位 varchar(255))
const MaxAccountIDLength = 255

// ValidateAccountID 帳戶 ID 為不透明字串，只拒絕空字串、過長或含空白/控制字元
func ValidateAccountID(id string) error {
	if id == "" || len(id) > MaxAccountIDLength {
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	if strings.IndexFunc(id, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	return nil
}

// Checks 一個請求需要的檢查：哪些帳戶要做資格檢查、哪個金額要檢查為正
type Checks struct {
	IDs    []string
	Amount decimal.Decimal
}

// Validate 依序檢查金額與帳戶 ID，回傳正規化後的金額
func (c Checks) Validate() (decimal.Decimal, error) {
	amount, err := ValidateAmount(c.Amount)
	if err != nil {
		return amount, err
	}
	for _, id := range c.IDs {
		if err := ValidateAccountID(id); err != nil {
			return amount, err
		}
	}
	return amount, nil
}

// DepositRequest 存款請求
type DepositRequest struct {
	AccountID string
	Amount    decimal.Decimal
}

// Checks 存款只需檢查單一帳戶
func (r DepositRequest) Checks() Checks {
	return Checks{IDs: []string{r.AccountID}, Amount: r.Amount}
}

// WithdrawRequest 提款請求
// 結構與 DepositRequest 相同，但屬於不同操作
type WithdrawRequest struct {
	AccountID string
	Amount    decimal.Decimal
}

// Checks 提款只需檢查單一帳戶
func (r WithdrawRequest) Checks() Checks {
	return Checks{IDs: []string{r.AccountID}, Amount: r.Amount}
}

// TransferRequest 轉帳請求
type TransferRequest struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Checks 轉帳兩個帳戶都要檢查
func (r TransferRequest) Checks() Checks {
	return Checks{IDs: []string{r.From, r.To}, Amount: r.Amount}
}

// LockIDs 回傳需要鎖定的帳號 ID，依字典序排列以避免死鎖
func (r TransferRequest) LockIDs() (first, second string) {
	return LockOrder(r.From, r.To)
}

// LockOrder 兩個帳戶的固定取得順序：字典序較小者優先
// 與轉帳方向無關，所以 A->B 與 B->A 永遠以相同順序取得
func LockOrder(a, b string) (first, second string) {
	if a < b {
		return a, b
	}
	return b, a
}
