package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

// OperationObserver 記錄每次帳務操作的結果分類 (pkg/metrics.Collector)
type OperationObserver interface {
	ObserveOperation(operation, category string)
}

// GrpcServer 將 gRPC 請求轉為 Ledger / Users 呼叫
type GrpcServer struct {
	ledger   *usecase.Ledger
	users    *usecase.Users
	observer OperationObserver
	logger   *logrus.Entry
}

// NewGrpcServer 建立 GrpcServer
// users 為 nil 時使用者相關 RPC 回傳 Unimplemented，observer 可為 nil
func NewGrpcServer(ledger *usecase.Ledger, users *usecase.Users, observer OperationObserver, logger *logrus.Entry) *GrpcServer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &GrpcServer{
		ledger:   ledger,
		users:    users,
		observer: observer,
		logger:   logger,
	}
}

func (s *GrpcServer) RegisterUser(ctx context.Context, req *RegisterUserRequest) (*RegisterUserResponse, error) {
	if s.users == nil {
		return nil, status.Error(codes.Unimplemented, "user directory disabled")
	}
	outcome, err := s.users.Register(ctx, domain.RegisterUserRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err := s.done("register_user", err); err != nil {
		return nil, err
	}
	if outcome == domain.AlreadyExists {
		return &RegisterUserResponse{Created: false, Message: "User exists"}, nil
	}
	return &RegisterUserResponse{Created: true, Message: "User created"}, nil
}

func (s *GrpcServer) DeactivateUser(ctx context.Context, req *DeactivateUserRequest) (*DeactivateUserResponse, error) {
	if s.users == nil {
		return nil, status.Error(codes.Unimplemented, "user directory disabled")
	}
	if err := s.done("deactivate_user", s.users.Deactivate(ctx, req.Email)); err != nil {
		return nil, err
	}
	return &DeactivateUserResponse{Message: "User deactivated"}, nil
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	outcome, err := s.ledger.Create(ctx, req.AccountID)
	if err := s.done("create", err); err != nil {
		return nil, err
	}
	if outcome == domain.AlreadyExists {
		return &CreateAccountResponse{Created: false, Message: "Account exists"}, nil
	}
	return &CreateAccountResponse{Created: true, Message: "Account created"}, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *DepositRequest) (*BalanceResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, s.done("deposit", err)
	}
	balance, err := s.ledger.Deposit(ctx, req.AccountID, amount)
	if err := s.done("deposit", err); err != nil {
		return nil, err
	}
	return balanceResponse(req.AccountID, balance), nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *WithdrawRequest) (*BalanceResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, s.done("withdraw", err)
	}
	balance, err := s.ledger.Withdraw(ctx, req.AccountID, amount)
	if err := s.done("withdraw", err); err != nil {
		return nil, err
	}
	return balanceResponse(req.AccountID, balance), nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, s.done("transfer", err)
	}
	res, err := s.ledger.Transfer(ctx, req.FromAccountID, req.ToAccountID, amount)
	if err := s.done("transfer", err); err != nil {
		return nil, err
	}
	return &TransferResponse{
		FromBalance: domain.FormatAmount(res.From.Balance),
		ToBalance:   domain.FormatAmount(res.To.Balance),
	}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *GetBalanceRequest) (*BalanceResponse, error) {
	balance, err := s.ledger.Balance(ctx, req.AccountID)
	if err := s.done("balance", err); err != nil {
		return nil, err
	}
	return balanceResponse(req.AccountID, balance), nil
}

func (s *GrpcServer) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	entries, err := s.ledger.History(ctx, req.AccountID)
	if err := s.done("history", err); err != nil {
		return nil, err
	}
	resp := &GetHistoryResponse{
		AccountID: req.AccountID,
		Entries:   make([]HistoryEntry, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			ID:             e.ID.String(),
			Timestamp:      e.Timestamp.UTC().Format(time.RFC3339Nano),
			Kind:           e.Kind.String(),
			Amount:         domain.FormatAmount(e.Amount),
			CounterpartyID: e.CounterpartyID,
		})
	}
	return resp, nil
}

// done 記錄結果分類並轉成 gRPC status
func (s *GrpcServer) done(operation string, err error) error {
	category := domain.Classify(err)
	if s.observer != nil {
		s.observer.ObserveOperation(operation, category.String())
	}
	if err == nil {
		return nil
	}
	if category == domain.CategoryInfrastructure || category == domain.CategoryFatal {
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"category":  category.String(),
		}).WithError(err).Error("ledger operation failed")
	}
	return ToStatus(err)
}

// ToStatus 錯誤分類對應 gRPC status code
// 基礎設施錯誤不回傳內部訊息
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch domain.Classify(err) {
	case domain.CategoryValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.CategoryNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.CategoryBusinessRule:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.CategoryForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case domain.CategoryFatal:
		return status.Error(codes.Internal, domain.ErrFatalInconsistency.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func balanceResponse(id string, balance decimal.Decimal) *BalanceResponse {
	return &BalanceResponse{AccountID: id, Balance: domain.FormatAmount(balance)}
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
