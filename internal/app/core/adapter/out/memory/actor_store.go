package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

// ErrStoreClosed ActorStore 已關閉
var ErrStoreClosed = errors.New("account store closed")

// DefaultMailboxSize 每個帳戶輸送帶的緩衝大小
const DefaultMailboxSize = 64

// actorRequest 請求包裝 channel，讓呼叫端可以等待結果
// mutate 為 nil 代表只讀取，restore 代表由 WAL 回復 (不寫 WAL)
type actorRequest struct {
	mutate  domain.Mutation
	restore bool
	result  chan actorReply
}

type actorReply struct {
	res domain.UpdateResult
	err error
}

// actor 單一帳戶的處理者，只有自己的 goroutine 會碰 account
type actor struct {
	account domain.Account
	mailbox chan *actorRequest
	// ready 在建立結果確定後關閉，之後才能讀 gone
	ready chan struct{}
	// 建立時 WAL 寫入失敗，goroutine 不會啟動
	gone bool
}

func newActor(account domain.Account, mailboxSize int) *actor {
	return &actor{
		account: account,
		mailbox: make(chan *actorRequest, mailboxSize),
		ready:   make(chan struct{}),
	}
}

// wait 等待建立結果，回傳帳戶是否存在
func (a *actor) wait(ctx context.Context) (bool, error) {
	select {
	case <-a.ready:
		return !a.gone, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ActorStore 每個帳戶一個 goroutine 的 AccountStore
//
// Update(等待) -> mailbox -> run loop -> WAL -> 更新狀態 -> result channel -> Update(收到結果)
type ActorStore struct {
	actors      sync.Map // map[string]*actor
	journal     Journal
	mailboxSize int
	count       atomic.Int64

	// Pool 減少 GC 壓力
	requestPool sync.Pool

	// 關閉流程: closing 擋住新請求，done 通知 actor 清空後結束
	lifecycle sync.RWMutex
	closing   bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// ActorOption ActorStore 設定
type ActorOption func(*ActorStore)

// WithActorJournal 每次提交都寫入 WAL
func WithActorJournal(j Journal) ActorOption {
	return func(s *ActorStore) {
		s.journal = j
	}
}

// WithMailboxSize 設定每個帳戶輸送帶大小
func WithMailboxSize(n int) ActorOption {
	return func(s *ActorStore) {
		if n > 0 {
			s.mailboxSize = n
		}
	}
}

// NewActorStore 建立 ActorStore，使用完畢需呼叫 Close
func NewActorStore(opts ...ActorOption) *ActorStore {
	s := &ActorStore{
		mailboxSize: DefaultMailboxSize,
		done:        make(chan struct{}),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &actorRequest{
					result: make(chan actorReply, 1),
				}
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 建立帳戶並啟動它的 goroutine
// WAL 寫入成功後才啟動 goroutine 並關閉 ready，在此之前其他請求會等待
// 同時建立同一個 ID 時，後到的一方等待先到的結果，先到的 WAL 失敗則重試
func (s *ActorStore) Create(ctx context.Context, id string) (domain.CreateOutcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.lifecycle.RLock()
	defer s.lifecycle.RUnlock()
	if s.closing {
		return 0, ErrStoreClosed
	}

	for {
		a := newActor(domain.NewAccount(id), s.mailboxSize)
		v, loaded := s.actors.LoadOrStore(id, a)
		if loaded {
			exists, err := v.(*actor).wait(ctx)
			if err != nil {
				return 0, err
			}
			if exists {
				return domain.AlreadyExists, nil
			}
			// 先到的建立失敗，已從索引移除
			continue
		}

		if err := journalAccount(s.journal, a.account); err != nil {
			a.gone = true
			s.actors.CompareAndDelete(id, a)
			close(a.ready)
			return 0, err
		}
		s.count.Add(1)
		s.start(a)
		close(a.ready)
		return domain.Created, nil
	}
}

// Read 經由 actor 讀取，與 Update 排在同一條輸送帶上
func (s *ActorStore) Read(ctx context.Context, id string) (domain.Account, bool, error) {
	res, err := s.send(ctx, id, nil, false)
	if err != nil {
		return domain.Account{}, false, err
	}
	if res.Status == domain.UpdateNotFound {
		return domain.Account{}, false, nil
	}
	return res.Account, true, nil
}

// Update 送入帳戶的輸送帶並等待結果
func (s *ActorStore) Update(ctx context.Context, id string, mutate domain.Mutation) (domain.UpdateResult, error) {
	if mutate == nil {
		return domain.UpdateResult{}, errors.New("nil mutation")
	}
	return s.send(ctx, id, mutate, false)
}

func (s *ActorStore) send(ctx context.Context, id string, mutate domain.Mutation, restore bool) (domain.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.UpdateResult{}, err
	}
	v, ok := s.actors.Load(id)
	if !ok {
		return domain.Missing(), nil
	}
	a := v.(*actor)
	exists, err := a.wait(ctx)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if !exists {
		return domain.Missing(), nil
	}

	req := s.requestPool.Get().(*actorRequest)
	req.mutate = mutate
	req.restore = restore
	// 清空 Channel
	select {
	case <-req.result:
	default:
	}

	s.lifecycle.RLock()
	if s.closing {
		s.lifecycle.RUnlock()
		s.requestPool.Put(req)
		return domain.UpdateResult{}, ErrStoreClosed
	}
	select {
	case a.mailbox <- req:
	case <-ctx.Done():
		s.lifecycle.RUnlock()
		s.requestPool.Put(req)
		return domain.UpdateResult{}, ctx.Err()
	}
	s.lifecycle.RUnlock()

	// 已進入輸送帶就一定會被處理 (Close 也會先清空)
	reply := <-req.result
	req.mutate = nil
	s.requestPool.Put(req)
	return reply.res, reply.err
}

func (s *ActorStore) start(a *actor) {
	s.wg.Add(1)
	go s.run(a)
}

func (s *ActorStore) run(a *actor) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			// 收到關閉信號，把剩下的請求處理完
			s.drain(a)
			return
		case req := <-a.mailbox:
			s.process(a, req)
		}
	}
}

func (s *ActorStore) drain(a *actor) {
	for {
		select {
		case req := <-a.mailbox:
			s.process(a, req)
		default:
			return
		}
	}
}

func (s *ActorStore) process(a *actor, req *actorRequest) {
	if req.mutate == nil {
		req.result <- actorReply{res: domain.Applied(a.account)}
		return
	}
	if req.restore {
		a.account, _ = req.mutate(a.account)
		req.result <- actorReply{res: domain.Applied(a.account)}
		return
	}
	res, err := apply(s.journal, a.account, req.mutate)
	if err == nil && res.Status == domain.UpdateApplied {
		a.account = res.Account
	}
	req.result <- actorReply{res: res, err: err}
}

// Restore 由 WAL 回復帳戶狀態，只在開始服務前呼叫
func (s *ActorStore) Restore(account domain.Account) {
	if _, ok := s.actors.Load(account.ID); ok {
		// goroutine 已啟動，走輸送帶覆寫
		_, _ = s.send(context.Background(), account.ID, func(domain.Account) (domain.Account, error) {
			return account, nil
		}, true)
		return
	}
	a := newActor(account, s.mailboxSize)
	close(a.ready)
	s.actors.Store(account.ID, a)
	s.count.Add(1)
	s.start(a)
}

// Len 帳戶數量
func (s *ActorStore) Len() int {
	return int(s.count.Load())
}

// Close 停止接收新請求，處理完輸送帶上剩餘的請求後結束所有 goroutine
func (s *ActorStore) Close() error {
	s.lifecycle.Lock()
	if s.closing {
		s.lifecycle.Unlock()
		return nil
	}
	s.closing = true
	s.lifecycle.Unlock()

	close(s.done)
	s.wg.Wait()
	return nil
}

var _ usecase.AccountStore = (*ActorStore)(nil)
