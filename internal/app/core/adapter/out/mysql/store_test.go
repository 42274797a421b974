package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func accountRows(id, balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "balance", "created_at", "updated_at"}).
		AddRow(id, balance, int64(1), int64(1))
}

func TestStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db)

	mock.ExpectExec("INSERT INTO `accounts`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `accounts`").WillReturnResult(sqlmock.NewResult(0, 0))

	out, err := s.Create(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.Created, out)

	out, err = s.Create(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, out)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Read(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\?").
		WillReturnRows(accountRows("a", "12.50"))
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))

	acc, found, err := s.Read(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "12.50", domain.FormatAmount(acc.Balance))

	_, found, err = s.Read(context.Background(), "b")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateApplied(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db, WithLockWaitTimeout(5))

	mock.ExpectBegin()
	mock.ExpectExec("SET SESSION innodb_lock_wait_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(accountRows("a", "10.00"))
	mock.ExpectExec("UPDATE `accounts` SET `balance`=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Update(context.Background(), "a", domain.Credit(decimal.RequireFromString("2.5")))
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateApplied, res.Status)
	assert.Equal(t, "a", res.Account.ID)
	assert.Equal(t, "12.50", domain.FormatAmount(res.Account.Balance))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateRejectedWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(accountRows("a", "1.00"))
	mock.ExpectCommit()

	res, err := s.Update(context.Background(), "a", domain.Debit(decimal.NewFromInt(5)))
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateRejected, res.Status)
	assert.ErrorIs(t, res.Reason, domain.ErrInsufficientFunds)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))
	mock.ExpectCommit()

	res, err := s.Update(context.Background(), "zz", domain.Credit(decimal.NewFromInt(1)))
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateNotFound, res.Status)
	assert.ErrorIs(t, res.Err("zz", domain.SideNone), domain.ErrAccountNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateInfrastructureError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts`").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), "a", domain.Credit(decimal.NewFromInt(1)))
	require.Error(t, err)
	assert.Equal(t, domain.CategoryInfrastructure, domain.Classify(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func pairRequest(from, to string, amount string) usecase.PairUpdate {
	first, second := domain.LockOrder(from, to)
	out, in := domain.NewTransferEntries(from, to, decimal.RequireFromString(amount), testNow)
	return usecase.PairUpdate{
		First:   first,
		Second:  second,
		From:    from,
		To:      to,
		Amount:  decimal.RequireFromString(amount),
		Entries: []domain.HistoryEntry{out, in},
	}
}

func TestStore_UpdatePairLocksInOrderAndCommits(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewStore(db)

	// b -> a，鎖定順序仍是 a 再 b，回傳列的順序錯誤會讓扣款失敗
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(accountRows("a", "0.00"))
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(accountRows("b", "100.00"))
	mock.ExpectExec("UPDATE `accounts` SET `balance`=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `accounts` SET `balance`=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `history`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	res, err := s.UpdatePair(context.Background(), pairRequest("b", "a", "30"))
	require.NoError(t, err)
	assert.Equal(t, "70.00", domain.FormatAmount(res.From.Balance))
	assert.Equal(t, "30.00", domain.FormatAmount(res.To.Balance))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdatePairRollsBack(t *testing.T) {
	t.Run("insufficient funds", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(accountRows("a", "10.00"))
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(accountRows("b", "0.00"))
		mock.ExpectRollback()

		_, err := s.UpdatePair(context.Background(), pairRequest("a", "b", "30"))
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing recipient", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(accountRows("a", "10.00"))
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}))
		mock.ExpectRollback()

		_, err := s.UpdatePair(context.Background(), pairRequest("a", "b", "1"))
		var nf *domain.AccountNotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, domain.SideTo, nf.Side)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHistory_AppendAndList(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewHistory(db)
	entry := domain.NewDepositEntry("a", decimal.NewFromInt(100), testNow)

	mock.ExpectExec("INSERT INTO `history`").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, h.Append(context.Background(), entry))

	mock.ExpectQuery("SELECT \\* FROM `history` WHERE account_id = \\? ORDER BY seq ASC").
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "ref_id", "account_id", "kind", "amount", "counterparty_id", "occurred_at"}).
			AddRow(int64(1), entry.ID[:], "a", int64(domain.EntryKindDeposit), "100.00", "", testNow.UnixMilli()))

	entries, err := h.List(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, domain.EntryKindDeposit, entries[0].Kind)
	assert.True(t, entries[0].Timestamp.Equal(testNow))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectory(t *testing.T) {
	db, mock := newMockDB(t)
	d := NewDirectory(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(0, 1))
	out, err := d.CreateUser(ctx, domain.User{Email: "a@x.io", Status: domain.UserStatusActivated})
	require.NoError(t, err)
	assert.Equal(t, domain.Created, out)

	userRows := func(status domain.UserStatus) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"email", "first_name", "last_name", "status"}).
			AddRow("a@x.io", "A", "B", int64(status))
	}

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").WillReturnRows(userRows(domain.UserStatusActivated))
	e, err := d.Eligibility(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, domain.EligibilityActive, e)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\? .*FOR UPDATE").WillReturnRows(userRows(domain.UserStatusActivated))
	mock.ExpectExec("UPDATE `users` SET `status`=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, d.SetStatus(ctx, "a@x.io", domain.UserStatusDeactivated))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectRollback()
	assert.ErrorIs(t, d.SetStatus(ctx, "c@x.io", domain.UserStatusDeactivated), domain.ErrUserNotFound)

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows([]string{"email"}))
	e, err = d.Eligibility(ctx, "c@x.io")
	require.NoError(t, err)
	assert.Equal(t, domain.EligibilityUnknown, e)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerOverMySQLUsesPairUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	l := usecase.NewLedger(NewStore(db), NewHistory(db))

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(accountRows("a", "50.00"))
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(accountRows("b", "0.00"))
	mock.ExpectExec("UPDATE `accounts`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `accounts`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `history`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	res, err := l.Transfer(context.Background(), "a", "b", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Equal(t, "30.00", domain.FormatAmount(res.From.Balance))
	assert.Equal(t, "20.00", domain.FormatAmount(res.To.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}
