package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind 歷史紀錄類型
type EntryKind uint8

const (
	// 存款
	EntryKindDeposit EntryKind = 1
	// 提款
	EntryKindWithdraw EntryKind = 2
	// 轉出
	EntryKindTransferOut EntryKind = 3
	// 轉入
	EntryKindTransferIn EntryKind = 4
)

func (k EntryKind) String() string {
	switch k {
	case EntryKindDeposit:
		return "deposit"
	case EntryKindWithdraw:
		return "withdraw"
	case EntryKindTransferOut:
		return "transfer_out"
	case EntryKindTransferIn:
		return "transfer_in"
	default:
		return "unknown"
	}
}

// IsTransfer 轉帳類型才會帶 CounterpartyID
func (k EntryKind) IsTransfer() bool {
	return k == EntryKindTransferOut || k == EntryKindTransferIn
}

// HistoryEntry 單筆已完成操作的紀錄，append 之後不可修改
type HistoryEntry struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      string          `json:"account_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Kind           EntryKind       `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	CounterpartyID string          `json:"counterparty_id,omitempty"`
}

// NewDepositEntry 存款紀錄
func NewDepositEntry(accountID string, amount decimal.Decimal, at time.Time) HistoryEntry {
	return newEntry(accountID, EntryKindDeposit, amount, "", at)
}

// NewWithdrawEntry 提款紀錄
func NewWithdrawEntry(accountID string, amount decimal.Decimal, at time.Time) HistoryEntry {
	return newEntry(accountID, EntryKindWithdraw, amount, "", at)
}

// NewTransferEntries 回傳一組轉帳紀錄 (轉出方, 轉入方)
func NewTransferEntries(fromID, toID string, amount decimal.Decimal, at time.Time) (out HistoryEntry, in HistoryEntry) {
	out = newEntry(fromID, EntryKindTransferOut, amount, toID, at)
	in = newEntry(toID, EntryKindTransferIn, amount, fromID, at)
	return out, in
}

func newEntry(accountID string, kind EntryKind, amount decimal.Decimal, counterparty string, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:             uuid.New(),
		AccountID:      accountID,
		Timestamp:      at.UTC(),
		Kind:           kind,
		Amount:         amount,
		CounterpartyID: counterparty,
	}
}
