package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-tinybank/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-tinybank/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-tinybank/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
	"github.com/JoeShih716/go-tinybank/internal/config"
	"github.com/JoeShih716/go-tinybank/pkg/logging"
	"github.com/JoeShih716/go-tinybank/pkg/metrics"
	"github.com/JoeShih716/go-tinybank/pkg/mysql"
	"github.com/JoeShih716/go-tinybank/pkg/wal"
)

// backend 依設定組出的儲存層
type backend struct {
	accounts     usecase.AccountStore
	history      usecase.HistoryLog
	directory    usecase.UserDirectory
	accountCount func() int
	closers      []func() error
}

func (b *backend) close(log *logrus.Entry) {
	// 反向關閉：先停 store 再關 WAL / DB
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log)
	log := logging.Component(logger, "core")

	// 2. 初始化儲存層
	b, err := buildBackend(cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to init backend")
	}
	defer b.close(log)
	log.WithField("backend", cfg.Ledger.Backend).Info("Backend ready")

	// 3. 初始化 UseCase
	ledger, users := newServices(cfg, b, logger)
	if !cfg.Ledger.RequireIdentity {
		log.Warn("require_identity disabled: deactivated users can still mutate accounts")
	}

	// 4. Metrics
	collector := metrics.New(b.accountCount)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Infof("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	// 5. 啟動 gRPC Server
	rpcLog := logging.Component(logger, "grpc")
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpc_adapter.RecoveryInterceptor(rpcLog),
		collector.UnaryServerInterceptor(),
		grpc_adapter.LoggingInterceptor(rpcLog),
		grpc_adapter.RateLimitInterceptor(cfg.Server.RateLimit, cfg.Server.RateBurst),
	))
	grpc_adapter.RegisterLedgerServiceServer(s, grpc_adapter.NewGrpcServer(ledger, users, collector, rpcLog))

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}
	go func() {
		log.Infof("Starting gRPC server on %s", cfg.Server.Addr)
		if err := s.Serve(lis); err != nil {
			log.WithError(err).Error("grpc server stopped")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("graceful stop timed out, forcing")
		s.Stop()
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(ctx)
		cancel()
	}
	log.Info("Server exited")
}

// newServices 建立 Ledger 與 Users，require_identity 開啟時 Ledger 會檢查使用者資格
func newServices(cfg config.Config, b *backend, logger *logrus.Logger) (*usecase.Ledger, *usecase.Users) {
	users := usecase.NewUsers(b.directory, logging.Component(logger, "users"))
	opts := []usecase.Option{usecase.WithLogger(logging.Component(logger, "ledger"))}
	if cfg.Ledger.RequireIdentity {
		opts = append(opts, usecase.WithEligibility(users))
	}
	return usecase.NewLedger(b.accounts, b.history, opts...), users
}

func buildBackend(cfg config.Config, logger *logrus.Logger) (*backend, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMySQL:
		return buildMySQL(cfg, logger)
	default:
		return buildMemory(cfg, logger)
	}
}

func buildMySQL(cfg config.Config, logger *logrus.Logger) (*backend, error) {
	log := logging.Component(logger, "mysql")
	client, err := mysql.NewClient(cfg.MySQL, log)
	if err != nil {
		return nil, err
	}
	log.WithField("target", cfg.MySQL.Redacted()).Info("Connected to MySQL successfully")

	if cfg.MySQL.AutoMigrate {
		if err := mysql_adapter.AutoMigrate(client.DB()); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	db := client.DB()
	return &backend{
		accounts:  mysql_adapter.NewStore(db, mysql_adapter.WithLockWaitTimeout(cfg.MySQL.LockWaitTimeout)),
		history:   mysql_adapter.NewHistory(db),
		directory: mysql_adapter.NewDirectory(db),
		closers:   []func() error{client.Close},
	}, nil
}

func buildMemory(cfg config.Config, logger *logrus.Logger) (*backend, error) {
	log := logging.Component(logger, "memory")
	b := &backend{}

	var (
		walFile *wal.WAL
		journal memory_adapter.Journal
	)
	if cfg.Ledger.WALPath != "" {
		w, err := wal.NewWAL(cfg.Ledger.WALPath)
		if err != nil {
			return nil, err
		}
		walFile, journal = w, w
		b.closers = append(b.closers, w.Close)
	}

	history := memory_adapter.NewHistory(journal)
	directory := memory_adapter.NewDirectory(journal)

	switch cfg.Ledger.Backend {
	case config.BackendActor:
		store := memory_adapter.NewActorStore(
			memory_adapter.WithActorJournal(journal),
			memory_adapter.WithMailboxSize(cfg.Ledger.MailboxSize),
		)
		b.accounts, b.accountCount = store, store.Len
		b.closers = append(b.closers, store.Close)
		if walFile != nil {
			n, err := memory_adapter.Replay(walFile, store, history, directory)
			if err != nil {
				b.close(log)
				return nil, err
			}
			log.Infof("Replayed %d WAL records", n)
		}
	default:
		store := memory_adapter.NewStore(memory_adapter.WithJournal(journal))
		b.accounts, b.accountCount = store, store.Len
		if walFile != nil {
			n, err := memory_adapter.Replay(walFile, store, history, directory)
			if err != nil {
				b.close(log)
				return nil, err
			}
			log.Infof("Replayed %d WAL records", n)
		}
	}

	b.history = history
	b.directory = directory
	return b, nil
}
