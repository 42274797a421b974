package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpc_adapter "github.com/JoeShih716/go-tinybank/internal/app/core/adapter/in/grpc"
	grpcpool "github.com/JoeShih716/go-tinybank/pkg/grpc"
	"github.com/JoeShih716/go-tinybank/pkg/logging"
)

// 壓測：兩個帳戶互相轉帳，驗證結束後總額不變且沒有死鎖
func main() {
	target := flag.String("target", "localhost:50051", "ledger gRPC address")
	total := flag.Int("n", 100000, "number of transfers")
	concurrency := flag.Int("c", 500, "concurrent requests")
	flag.Parse()

	log := logging.Component(logging.New(logging.Config{Level: "info"}), "load")

	pool := grpcpool.NewPool(grpcpool.WithDefaultCallOptions(grpc.CallContentSubtype(grpc_adapter.CodecName)))
	defer pool.Close()
	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.WithError(err).Fatal("did not connect")
	}
	c := grpc_adapter.NewLedgerServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// 每次執行使用新的帳戶，避免與上一次結果混在一起
	// 帳戶 ID 為使用者 email，需先註冊才能開戶 (require_identity)
	run := uuid.NewString()[:8]
	a, b := "load-a-"+run+"@tinybank.local", "load-b-"+run+"@tinybank.local"
	const seed = "1000000.00"
	for _, id := range []string{a, b} {
		if _, err := c.RegisterUser(ctx, &grpc_adapter.RegisterUserRequest{Email: id, FirstName: "load", LastName: run}); err != nil {
			log.WithError(err).Fatal("register user")
		}
		if _, err := c.CreateAccount(ctx, &grpc_adapter.CreateAccountRequest{AccountID: id}); err != nil {
			log.WithError(err).Fatal("create account")
		}
		if _, err := c.Deposit(ctx, &grpc_adapter.DepositRequest{AccountID: id, Amount: seed}); err != nil {
			log.WithError(err).Fatal("seed deposit")
		}
	}

	var (
		wg       sync.WaitGroup
		ok       atomic.Int64
		rejected atomic.Int64
		failed   atomic.Int64
	)
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			from, to := a, b
			if idx%2 == 1 {
				from, to = b, a
			}
			_, err := c.Transfer(ctx, &grpc_adapter.TransferRequest{
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        "1.00",
			})
			switch status.Code(err) {
			case codes.OK:
				ok.Add(1)
			case codes.FailedPrecondition, codes.ResourceExhausted:
				rejected.Add(1)
			default:
				failed.Add(1)
				if idx%10000 == 0 {
					log.WithError(err).Warnf("transfer %d failed", idx)
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	balA, errA := c.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{AccountID: a})
	balB, errB := c.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{AccountID: b})
	if errA != nil || errB != nil {
		log.WithFields(logrus.Fields{"a": errA, "b": errB}).Fatal("read final balances")
	}

	fmt.Printf("Completed %d requests in %v\n", *total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())
	fmt.Printf("ok=%d rejected=%d failed=%d\n", ok.Load(), rejected.Load(), failed.Load())
	fmt.Printf("%s=%s %s=%s (each started at %s)\n", a, balA.Balance, b, balB.Balance, seed)
}
