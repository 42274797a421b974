package domain

import "github.com/shopspring/decimal"

// Account 帳戶，以不可變的 ID 識別，餘額永遠 >= 0
type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// NewAccount 建立餘額為 0 的帳戶
func NewAccount(id string) Account {
	return Account{
		ID:      id,
		Balance: decimal.Zero,
	}
}

// Mutation 在單一帳戶的臨界區內執行的 read-modify-write 函式
// 回傳 error 代表拒絕本次變更 (例如餘額不足)，帳戶維持原狀
type Mutation func(Account) (Account, error)

// Credit 入帳，沒有任何前置條件
func Credit(amount decimal.Decimal) Mutation {
	return func(a Account) (Account, error) {
		if !amount.IsPositive() {
			return a, ErrInvalidAmount
		}
		a.Balance = a.Balance.Add(amount)
		return a, nil
	}
}

// Debit 扣款，餘額檢查必須與扣款在同一個臨界區內完成
func Debit(amount decimal.Decimal) Mutation {
	return func(a Account) (Account, error) {
		if !amount.IsPositive() {
			return a, ErrInvalidAmount
		}
		if a.Balance.Sub(amount).IsNegative() {
			return a, ErrInsufficientFunds
		}
		a.Balance = a.Balance.Sub(amount)
		return a, nil
	}
}

