package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
)

// Ledger 核心業務邏輯層
// 負責金額與帳戶檢查、身分資格、轉帳協定與歷史紀錄
type Ledger struct {
	accounts    AccountStore
	history     HistoryLog
	eligibility Eligibility
	logger      *logrus.Entry
	now         func() time.Time
}

// Option Ledger 設定
type Option func(*Ledger)

// WithEligibility 在每個會異動帳戶的操作前檢查使用者資格
func WithEligibility(e Eligibility) Option {
	return func(l *Ledger) {
		l.eligibility = e
	}
}

// WithLogger 指定 logger
func WithLogger(logger *logrus.Entry) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock 指定歷史紀錄時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger 建立 Ledger
//
// 參數:
//
//	accounts: 帳戶儲存層
//	history: 歷史紀錄
//	opts: 選項
//
// 回傳:
//
//	*Ledger: Ledger 實例
func NewLedger(accounts AccountStore, history HistoryLog, opts ...Option) *Ledger {
	l := &Ledger{
		accounts: accounts,
		history:  history,
		logger:   logrus.NewEntry(logrus.StandardLogger()).WithField("component", "ledger"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create 建立帳戶，重複建立回傳 AlreadyExists 而非錯誤
func (l *Ledger) Create(ctx context.Context, id string) (domain.CreateOutcome, error) {
	if err := domain.ValidateAccountID(id); err != nil {
		return 0, err
	}
	if err := l.gate(ctx, id); err != nil {
		return 0, err
	}
	outcome, err := l.accounts.Create(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("create account %s: %w", id, err)
	}
	return outcome, nil
}

// Deposit 存款
//
// 參數:
//
//	ctx: 上下文
//	id: 帳戶 ID
//	amount: 金額，必須 > 0
//
// 回傳:
//
//	decimal.Decimal: 存款後餘額
//	error: 金額錯誤、帳戶不存在或儲存層錯誤
func (l *Ledger) Deposit(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	amount, err := domain.DepositRequest{AccountID: id, Amount: amount}.Checks().Validate()
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.gate(ctx, id); err != nil {
		return decimal.Zero, err
	}

	res, err := l.accounts.Update(ctx, id, domain.Credit(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("deposit %s: %w", id, err)
	}
	if err := res.Err(id, domain.SideNone); err != nil {
		return decimal.Zero, err
	}

	l.appendHistory(ctx, domain.NewDepositEntry(id, amount, l.now()))
	return res.Account.Balance, nil
}

// Withdraw 提款，餘額不足時回傳 ErrInsufficientFunds 且餘額不變
func (l *Ledger) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	amount, err := domain.WithdrawRequest{AccountID: id, Amount: amount}.Checks().Validate()
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.gate(ctx, id); err != nil {
		return decimal.Zero, err
	}

	res, err := l.accounts.Update(ctx, id, domain.Debit(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("withdraw %s: %w", id, err)
	}
	if err := res.Err(id, domain.SideNone); err != nil {
		return decimal.Zero, err
	}

	l.appendHistory(ctx, domain.NewWithdrawEntry(id, amount, l.now()))
	return res.Account.Balance, nil
}

// Transfer 轉帳
//
// 先確認雙方帳戶都存在 (依 LockOrder 的順序讀取)，才會扣款。
// 任何時間點最多只持有一個帳戶的臨界區，扣款後入帳失敗視為無法回復的不一致。
// 儲存層若實作 PairUpdater，改由儲存層在同一個交易內依序鎖定兩個帳戶。
//
// 參數:
//
//	ctx: 上下文
//	from: 轉出帳戶
//	to: 轉入帳戶
//	amount: 金額，必須 > 0
//
// 回傳:
//
//	domain.TransferResult: 轉帳後雙方帳戶
//	error: 驗證錯誤、帳戶不存在、餘額不足或 ErrFatalInconsistency
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (domain.TransferResult, error) {
	req := domain.TransferRequest{From: from, To: to, Amount: amount}
	amount, err := req.Checks().Validate()
	if err != nil {
		return domain.TransferResult{}, err
	}
	if from == to {
		return domain.TransferResult{}, fmt.Errorf("%w: id=%s", domain.ErrSameAccount, from)
	}
	if err := l.gate(ctx, from, to); err != nil {
		return domain.TransferResult{}, err
	}

	first, second := req.LockIDs()
	out, in := domain.NewTransferEntries(from, to, amount, l.now())

	if pair, ok := l.accounts.(PairUpdater); ok {
		return pair.UpdatePair(ctx, PairUpdate{
			First:   first,
			Second:  second,
			From:    from,
			To:      to,
			Amount:  amount,
			Entries: []domain.HistoryEntry{out, in},
		})
	}

	// 依固定順序確認雙方存在
	// 扣款與入帳之後依轉帳方向進行，兩者都不會在持有另一個臨界區時等待
	for _, id := range []string{first, second} {
		_, found, err := l.accounts.Read(ctx, id)
		if err != nil {
			return domain.TransferResult{}, fmt.Errorf("transfer read %s: %w", id, err)
		}
		if !found {
			return domain.TransferResult{}, domain.NotFound(id, sideOf(id, from))
		}
	}

	debited, err := l.accounts.Update(ctx, from, domain.Debit(amount))
	if err != nil {
		return domain.TransferResult{}, fmt.Errorf("transfer debit %s: %w", from, err)
	}
	if err := debited.Err(from, domain.SideFrom); err != nil {
		return domain.TransferResult{}, err
	}

	credited, err := l.accounts.Update(ctx, to, domain.Credit(amount))
	if err == nil {
		err = credited.Err(to, domain.SideTo)
	}
	if err != nil {
		// 扣款已提交，無法自動回復
		l.logger.WithFields(logrus.Fields{
			"from":   from,
			"to":     to,
			"amount": domain.FormatAmount(amount),
			"error":  err,
		}).Log(logrus.FatalLevel, "transfer credit failed after debit committed")
		return domain.TransferResult{}, fmt.Errorf("%w: from=%s to=%s amount=%s: %v",
			domain.ErrFatalInconsistency, from, to, domain.FormatAmount(amount), err)
	}

	l.appendHistory(ctx, out)
	l.appendHistory(ctx, in)
	return domain.TransferResult{From: debited.Account, To: credited.Account}, nil
}

// Balance 查詢餘額
func (l *Ledger) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	if err := domain.ValidateAccountID(id); err != nil {
		return decimal.Zero, err
	}
	acc, found, err := l.accounts.Read(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance %s: %w", id, err)
	}
	if !found {
		return decimal.Zero, domain.NotFound(id, domain.SideNone)
	}
	return acc.Balance, nil
}

// History 查詢歷史紀錄，舊到新
func (l *Ledger) History(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	if err := domain.ValidateAccountID(id); err != nil {
		return nil, err
	}
	_, found, err := l.accounts.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	if !found {
		return nil, domain.NotFound(id, domain.SideNone)
	}
	entries, err := l.history.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	return entries, nil
}

// gate 身分資格檢查，未設定 Eligibility 時全部放行
func (l *Ledger) gate(ctx context.Context, ids ...string) error {
	if l.eligibility == nil {
		return nil
	}
	for _, id := range ids {
		e, err := l.eligibility.Eligibility(ctx, id)
		if err != nil {
			return fmt.Errorf("eligibility %s: %w", id, err)
		}
		if err := e.Err(id); err != nil {
			return err
		}
	}
	return nil
}

// appendHistory 餘額已提交，寫入失敗只記錄不回滾
func (l *Ledger) appendHistory(ctx context.Context, entry domain.HistoryEntry) {
	if err := l.history.Append(ctx, entry); err != nil {
		l.logger.WithFields(logrus.Fields{
			"account_id": entry.AccountID,
			"kind":       entry.Kind.String(),
			"amount":     domain.FormatAmount(entry.Amount),
			"entry_id":   entry.ID.String(),
		}).WithError(err).Error("history append failed")
	}
}

func sideOf(id, from string) domain.Side {
	if id == from {
		return domain.SideFrom
	}
	return domain.SideTo
}
