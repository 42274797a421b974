package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-tinybank/pkg/logging"
	"github.com/JoeShih716/go-tinybank/pkg/mysql"
)

// Backend 帳戶儲存實作
type Backend string

const (
	BackendMemory Backend = "memory" // 每個帳戶一把 Mutex
	BackendActor  Backend = "actor"  // 每個帳戶一個 goroutine
	BackendMySQL  Backend = "mysql"
)

// Config 服務設定，對應 config/config.yaml
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Log     logging.Config `yaml:"log"`
	Ledger  LedgerConfig   `yaml:"ledger"`
	MySQL   mysql.Config   `yaml:"mysql"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// 整個服務每秒請求上限，0 代表不限制
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// GracefulStop 等待上限
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LedgerConfig struct {
	Backend Backend `yaml:"backend"`
	// 記憶體實作的 WAL 路徑，空字串代表不寫 WAL
	WALPath     string `yaml:"wal_path"`
	MailboxSize int    `yaml:"mailbox_size"`
	// 只有已註冊且啟用中的使用者可以異動帳戶 (預設 true)
	// 設為 false 時停用的使用者仍可存提款，只用於壓測
	RequireIdentity bool `yaml:"require_identity"`
}

// Load 讀取 YAML 設定並補上預設值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default 解析前的初始值
// bool 欄位無法在 applyDefaults 分辨「沒寫」與 false，預設 true 的欄位在這裡給
func Default() Config {
	return Config{
		Ledger: LedgerConfig{RequireIdentity: true},
	}
}

// Validate 檢查設定值
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory, BackendActor, BackendMySQL:
	default:
		return fmt.Errorf("config: unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: rate_limit must be >= 0")
	}
	if c.Ledger.Backend == BackendMySQL && c.MySQL.Host == "" {
		return fmt.Errorf("config: mysql.host is required for the mysql backend")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":50051"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = BackendMemory
	}

	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	if c.MySQL.LockWaitTimeout == 0 {
		c.MySQL.LockWaitTimeout = 5
	}
}
