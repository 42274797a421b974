package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName gRPC 服務名稱
const ServiceName = "tinybank.LedgerService"

const (
	MethodRegisterUser   = "/" + ServiceName + "/RegisterUser"
	MethodDeactivateUser = "/" + ServiceName + "/DeactivateUser"
	MethodCreateAccount  = "/" + ServiceName + "/CreateAccount"
	MethodDeposit        = "/" + ServiceName + "/Deposit"
	MethodWithdraw       = "/" + ServiceName + "/Withdraw"
	MethodTransfer       = "/" + ServiceName + "/Transfer"
	MethodGetBalance     = "/" + ServiceName + "/GetBalance"
	MethodGetHistory     = "/" + ServiceName + "/GetHistory"
)

// LedgerServiceServer 服務端介面
type LedgerServiceServer interface {
	RegisterUser(context.Context, *RegisterUserRequest) (*RegisterUserResponse, error)
	DeactivateUser(context.Context, *DeactivateUserRequest) (*DeactivateUserResponse, error)
	CreateAccount(context.Context, *CreateAccountRequest) (*CreateAccountResponse, error)
	Deposit(context.Context, *DepositRequest) (*BalanceResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*BalanceResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*BalanceResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
}

// unary 產生 MethodDesc，處理解碼與攔截器
func unary[Req any, Resp any](name string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc 手寫的 ServiceDesc，訊息以 JSON codec 編碼
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RegisterUser", LedgerServiceServer.RegisterUser),
		unary("DeactivateUser", LedgerServiceServer.DeactivateUser),
		unary("CreateAccount", LedgerServiceServer.CreateAccount),
		unary("Deposit", LedgerServiceServer.Deposit),
		unary("Withdraw", LedgerServiceServer.Withdraw),
		unary("Transfer", LedgerServiceServer.Transfer),
		unary("GetBalance", LedgerServiceServer.GetBalance),
		unary("GetHistory", LedgerServiceServer.GetHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tinybank/ledger.json",
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}
