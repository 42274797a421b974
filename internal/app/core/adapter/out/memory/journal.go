package memory

import (
	"encoding/json"
	"fmt"

	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/pkg/wal"
)

// Journal 寫入已提交的狀態，*wal.WAL 實作此介面
type Journal interface {
	Write(v any) error
}

type recordType string

const (
	recordAccount recordType = "account"
	recordHistory recordType = "history"
	recordUser    recordType = "user"
)

// record WAL 中的一行
// account 紀錄保存帳戶異動後的完整狀態，重播時後寫覆蓋先寫
type record struct {
	Type    recordType           `json:"type"`
	Account *domain.Account      `json:"account,omitempty"`
	Entry   *domain.HistoryEntry `json:"entry,omitempty"`
	User    *domain.User         `json:"user,omitempty"`
}

// restorer 可由 WAL 回復帳戶的儲存層
type restorer interface {
	Restore(account domain.Account)
}

// Replay 從 WAL 回復帳戶、歷史紀錄與使用者，必須在開始服務前呼叫
//
// 參數:
//
//	w: WAL 實例
//	accounts: Store 或 ActorStore
//	history: 可為 nil
//	users: 可為 nil
//
// 回傳:
//
//	int: 重播筆數
//	error: 讀取或解析錯誤
func Replay(w *wal.WAL, accounts restorer, history *History, users *Directory) (int, error) {
	n := 0
	err := w.ReadAll(func(raw []byte) error {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("replay record %d: %w", n+1, err)
		}
		switch rec.Type {
		case recordAccount:
			if rec.Account != nil && accounts != nil {
				accounts.Restore(*rec.Account)
			}
		case recordHistory:
			if rec.Entry != nil && history != nil {
				history.restore(*rec.Entry)
			}
		case recordUser:
			if rec.User != nil && users != nil {
				users.restore(*rec.User)
			}
		default:
			return fmt.Errorf("replay record %d: unknown type %q", n+1, rec.Type)
		}
		n++
		return nil
	})
	return n, err
}

// journalAccount 在帳戶臨界區內呼叫，使 WAL 中同一帳戶的順序等於提交順序
func journalAccount(j Journal, acc domain.Account) error {
	if j == nil {
		return nil
	}
	if err := j.Write(record{Type: recordAccount, Account: &acc}); err != nil {
		return fmt.Errorf("%w: account=%s: %v", domain.ErrJournalWriteFailed, acc.ID, err)
	}
	return nil
}

func journalEntry(j Journal, entry domain.HistoryEntry) error {
	if j == nil {
		return nil
	}
	if err := j.Write(record{Type: recordHistory, Entry: &entry}); err != nil {
		return fmt.Errorf("%w: entry=%s: %v", domain.ErrJournalWriteFailed, entry.ID, err)
	}
	return nil
}

func journalUser(j Journal, user domain.User) error {
	if j == nil {
		return nil
	}
	if err := j.Write(record{Type: recordUser, User: &user}); err != nil {
		return fmt.Errorf("%w: user: %v", domain.ErrJournalWriteFailed, err)
	}
	return nil
}

// apply 在臨界區內執行 mutate，先寫 WAL 再回傳新狀態
// 回傳的 Account 只有在 Applied 時才應寫回
func apply(j Journal, current domain.Account, mutate domain.Mutation) (domain.UpdateResult, error) {
	next, err := mutate(current)
	if err != nil {
		return domain.Rejected(err), nil
	}
	// ID 不可變更
	next.ID = current.ID
	if err := journalAccount(j, next); err != nil {
		return domain.UpdateResult{}, err
	}
	return domain.Applied(next), nil
}
