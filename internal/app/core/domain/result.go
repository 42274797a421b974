package domain

// CreateOutcome 建立帳戶 (或使用者) 的結果，重複建立不視為錯誤
type CreateOutcome uint8

const (
	Created CreateOutcome = iota + 1
	AlreadyExists
)

func (o CreateOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// UpdateStatus Update 的結果標籤
type UpdateStatus uint8

const (
	UpdateApplied UpdateStatus = iota + 1
	UpdateRejected
	UpdateNotFound
)

// UpdateResult 單一帳戶原子更新的結果
//
//	Applied: Account 為更新後的帳戶
//	Rejected: Reason 為 Mutation 回傳的拒絕原因，帳戶未變
//	NotFound: 帳戶不存在
type UpdateResult struct {
	Status  UpdateStatus
	Account Account
	Reason  error
}

// Applied 建立成功結果
func Applied(account Account) UpdateResult {
	return UpdateResult{Status: UpdateApplied, Account: account}
}

// Rejected 建立拒絕結果
func Rejected(reason error) UpdateResult {
	return UpdateResult{Status: UpdateRejected, Reason: reason}
}

// Missing 建立帳戶不存在結果
func Missing() UpdateResult {
	return UpdateResult{Status: UpdateNotFound}
}

// Err 將結果轉為錯誤；Applied 回傳 nil
func (r UpdateResult) Err(id string, side Side) error {
	switch r.Status {
	case UpdateApplied:
		return nil
	case UpdateRejected:
		return r.Reason
	default:
		return NotFound(id, side)
	}
}

// TransferResult 轉帳完成後雙方餘額
type TransferResult struct {
	From Account
	To   Account
}
