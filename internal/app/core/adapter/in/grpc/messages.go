package grpc

// 金額一律以十進位字串傳遞，例如 "70.00"

type RegisterUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RegisterUserResponse struct {
	Created bool   `json:"created"`
	Message string `json:"message"`
}

type DeactivateUserRequest struct {
	Email string `json:"email"`
}

type DeactivateUserResponse struct {
	Message string `json:"message"`
}

type CreateAccountRequest struct {
	AccountID string `json:"account_id"`
}

type CreateAccountResponse struct {
	Created bool   `json:"created"`
	Message string `json:"message"`
}

type DepositRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

type WithdrawRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

type TransferResponse struct {
	FromBalance string `json:"from_balance"`
	ToBalance   string `json:"to_balance"`
}

type GetBalanceRequest struct {
	AccountID string `json:"account_id"`
}

// BalanceResponse Deposit、Withdraw 與 GetBalance 共用
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

type GetHistoryRequest struct {
	AccountID string `json:"account_id"`
}

type HistoryEntry struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"` // RFC 3339, UTC
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
}

type GetHistoryResponse struct {
	AccountID string         `json:"account_id"`
	Entries   []HistoryEntry `json:"entries"`
}
