package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀)
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於機密檔
	FileModePrivate fs.FileMode = 0600
)

// ErrClosed WAL 已關閉
var ErrClosed = errors.New("wal: closed")

// WAL 以 JSON Lines 格式追加寫入的日誌檔
// 每筆資料一行，Write 預設在回傳前 fsync
type WAL struct {
	file     *os.File
	buf      *bufio.Writer
	mu       sync.Mutex
	syncEach bool
	records  int64
	closed   bool
}

// Option WAL 設定
type Option func(*WAL)

// WithSyncEachWrite 每筆 Write 是否都 fsync (預設 true)
// 關閉時需自行呼叫 Flush
func WithSyncEachWrite(on bool) Option {
	return func(w *WAL) {
		w.syncEach = on
	}
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string, opts ...Option) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	w := &WAL{
		file:     file,
		buf:      bufio.NewWriter(file),
		syncEach: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write 寫入一筆資料
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wal: encode: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.buf.Write(append(line, '\n')); err != nil {
		return err
	}
	w.records++
	if !w.syncEach {
		return nil
	}
	return w.flushLocked()
}

// Flush 將緩衝寫入檔案並 fsync
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.flushLocked()
}

func (w *WAL) flushLocked() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Records 本次開啟後寫入的筆數
func (w *WAL) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Close 刷入剩餘資料後關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	flushErr := w.flushLocked()
	closeErr := w.file.Close()
	return errors.Join(flushErr, closeErr)
}

// ReadAll 從頭讀取所有資料
// callback 每次收到一筆 json.RawMessage，不會一次將所有資料載入記憶體
// 檔案尾端若有寫到一半的資料 (程序中斷)，視為未提交，截斷後之後的 Write 從最後一筆完整資料後接續
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	// 最後一筆完整資料結尾的位置
	var good int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return w.truncateLocked(good)
			}
			return fmt.Errorf("wal: decode: %w", err)
		}
		good = decoder.InputOffset()
		if err := callback(raw); err != nil {
			return err
		}
	}
}

// truncateLocked 丟棄 offset 之後的殘缺資料並補回換行
func (w *WAL) truncateLocked(offset int64) error {
	if err := w.file.Truncate(offset); err != nil {
		return fmt.Errorf("wal: truncate torn tail at %d: %w", offset, err)
	}
	if offset > 0 {
		// O_APPEND: 寫在截斷後的結尾
		if _, err := w.file.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("wal: truncate torn tail: %w", err)
		}
	}
	return w.file.Sync()
}
