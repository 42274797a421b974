package memory

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
	"github.com/JoeShih716/go-tinybank/pkg/wal"
)

// storeFactory 兩種實作共用同一組測試
type storeFactory func(t *testing.T, j Journal) usecase.AccountStore

var factories = map[string]storeFactory{
	"mutex": func(t *testing.T, j Journal) usecase.AccountStore {
		return NewStore(WithJournal(j))
	},
	"actor": func(t *testing.T, j Journal) usecase.AccountStore {
		s := NewActorStore(WithActorJournal(j), WithMailboxSize(8))
		t.Cleanup(func() { _ = s.Close() })
		return s
	},
}

type failingJournal struct{}

func (failingJournal) Write(any) error { return errors.New("disk full") }

func TestStore_CreateIdempotent(t *testing.T) {
	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, nil)

			out, err := s.Create(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, domain.Created, out)

			out, err = s.Create(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, domain.AlreadyExists, out)

			acc, found, err := s.Read(ctx, "a")
			require.NoError(t, err)
			require.True(t, found)
			assert.True(t, acc.Balance.IsZero())
		})
	}
}

func TestStore_UpdateResults(t *testing.T) {
	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, nil)
			_, err := s.Create(ctx, "a")
			require.NoError(t, err)

			res, err := s.Update(ctx, "a", domain.Credit(decimal.NewFromInt(10)))
			require.NoError(t, err)
			assert.Equal(t, domain.UpdateApplied, res.Status)
			assert.True(t, res.Account.Balance.Equal(decimal.NewFromInt(10)))

			res, err = s.Update(ctx, "a", domain.Debit(decimal.NewFromInt(11)))
			require.NoError(t, err)
			assert.Equal(t, domain.UpdateRejected, res.Status)
			assert.ErrorIs(t, res.Reason, domain.ErrInsufficientFunds)

			acc, _, err := s.Read(ctx, "a")
			require.NoError(t, err)
			assert.True(t, acc.Balance.Equal(decimal.NewFromInt(10)))

			res, err = s.Update(ctx, "missing", domain.Credit(decimal.NewFromInt(1)))
			require.NoError(t, err)
			assert.Equal(t, domain.UpdateNotFound, res.Status)

			_, found, err := s.Read(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_NoLostUpdate(t *testing.T) {
	const n = 200
	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, nil)
			_, err := s.Create(ctx, "a")
			require.NoError(t, err)
			_, err = s.Update(ctx, "a", domain.Credit(decimal.NewFromInt(n)))
			require.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, _ = s.Update(ctx, "a", domain.Credit(decimal.NewFromInt(2)))
				}()
				go func() {
					defer wg.Done()
					_, _ = s.Update(ctx, "a", domain.Debit(decimal.NewFromInt(1)))
				}()
			}
			wg.Wait()

			acc, _, err := s.Read(ctx, "a")
			require.NoError(t, err)
			// n + 2n - n
			assert.True(t, acc.Balance.Equal(decimal.NewFromInt(2*n)), acc.Balance.String())
		})
	}
}

func TestStore_JournalFailure(t *testing.T) {
	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, failingJournal{})

			_, err := s.Create(ctx, "a")
			assert.ErrorIs(t, err, domain.ErrJournalWriteFailed)

			_, found, err := s.Read(ctx, "a")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

// firstWriteFails 第一次寫入會停住直到 release，然後失敗
type firstWriteFails struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func newFirstWriteFails() *firstWriteFails {
	return &firstWriteFails{entered: make(chan struct{}), release: make(chan struct{})}
}

func (j *firstWriteFails) Write(any) error {
	j.mu.Lock()
	j.calls++
	first := j.calls == 1
	j.mu.Unlock()
	if !first {
		return nil
	}
	close(j.entered)
	<-j.release
	return errors.New("disk full")
}

func TestStore_CreateRacingFailedCreate(t *testing.T) {
	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			j := newFirstWriteFails()
			s := newStore(t, j)

			firstErr := make(chan error, 1)
			go func() {
				_, err := s.Create(ctx, "a")
				firstErr <- err
			}()
			<-j.entered

			type outcome struct {
				res domain.CreateOutcome
				err error
			}
			second := make(chan outcome, 1)
			go func() {
				res, err := s.Create(ctx, "a")
				second <- outcome{res, err}
			}()
			close(j.release)

			assert.ErrorIs(t, <-firstErr, domain.ErrJournalWriteFailed)
			got := <-second
			require.NoError(t, got.err)
			assert.Equal(t, domain.Created, got.res)

			acc, found, err := s.Read(ctx, "a")
			require.NoError(t, err)
			assert.True(t, found)
			assert.True(t, acc.Balance.IsZero())
			assert.Equal(t, 1, s.(interface{ Len() int }).Len())
		})
	}
}

func TestActorStore_FailedCreateIsNotServed(t *testing.T) {
	ctx := context.Background()
	s := NewActorStore(WithActorJournal(failingJournal{}))

	_, err := s.Create(ctx, "a")
	require.ErrorIs(t, err, domain.ErrJournalWriteFailed)

	res, err := s.Update(ctx, "a", domain.Credit(decimal.NewFromInt(1)))
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateNotFound, res.Status)
	assert.Zero(t, s.Len())
	require.NoError(t, s.Close())
}

func TestStore_UpdateJournalFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	j := &toggleJournal{}
	s := NewStore(WithJournal(j))
	_, err := s.Create(ctx, "a")
	require.NoError(t, err)

	j.fail = true
	_, err = s.Update(ctx, "a", domain.Credit(decimal.NewFromInt(5)))
	assert.ErrorIs(t, err, domain.ErrJournalWriteFailed)

	acc, _, err := s.Read(ctx, "a")
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
}

type toggleJournal struct {
	fail bool
}

func (j *toggleJournal) Write(any) error {
	if j.fail {
		return errors.New("io error")
	}
	return nil
}

func TestReplay_RestoresState(t *testing.T) {
	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "ledger.wal")

			w, err := wal.NewWAL(path)
			require.NoError(t, err)
			s := newStore(t, w)
			h := NewHistory(w)
			d := NewDirectory(w)

			_, err = d.CreateUser(ctx, domain.User{Email: "a@x.io", Status: domain.UserStatusActivated})
			require.NoError(t, err)
			_, err = s.Create(ctx, "a@x.io")
			require.NoError(t, err)
			_, err = s.Update(ctx, "a@x.io", domain.Credit(decimal.RequireFromString("12.50")))
			require.NoError(t, err)
			require.NoError(t, h.Append(ctx, domain.NewDepositEntry("a@x.io", decimal.RequireFromString("12.50"), testNow)))
			_, err = s.Update(ctx, "a@x.io", domain.Debit(decimal.RequireFromString("2.25")))
			require.NoError(t, err)
			require.NoError(t, d.SetStatus(ctx, "a@x.io", domain.UserStatusDeactivated))
			require.NoError(t, w.Close())

			reopened, err := wal.NewWAL(path)
			require.NoError(t, err)
			defer reopened.Close()

			restored := newStore(t, nil)
			rh := NewHistory(nil)
			rd := NewDirectory(nil)
			n, err := Replay(reopened, restored.(restorer), rh, rd)
			require.NoError(t, err)
			assert.Equal(t, 6, n)

			acc, found, err := restored.Read(ctx, "a@x.io")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "10.25", domain.FormatAmount(acc.Balance))

			entries, err := rh.List(ctx, "a@x.io")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, domain.EntryKindDeposit, entries[0].Kind)

			e, err := rd.Eligibility(ctx, "a@x.io")
			require.NoError(t, err)
			assert.Equal(t, domain.EligibilityInactive, e)
		})
	}
}

func TestActorStore_Close(t *testing.T) {
	ctx := context.Background()
	s := NewActorStore()
	_, err := s.Create(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Update(ctx, "a", domain.Credit(decimal.NewFromInt(1)))
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.Create(ctx, "b")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStore_Len(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b", "a"} {
		_, err := s.Create(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Len())
}
