package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 配置
type Config struct {
	Service    ServiceConfig    `yaml:"service" json:"service"`
	Blockchain BlockchainConfig `yaml:"blockchain" json:"blockchain"`
	Contracts  ContractsConfig  `yaml:"contracts" json:"contracts"`
	Poller     PollerConfig     `yaml:"poller" json:"poller"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Kafka      KafkaConfig      `yaml:"kafka" json:"kafka"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	Env      string `yaml:"env" json:"env"`
}

// BlockchainConfig 链配置
type BlockchainConfig struct {
	RPCURL        string   `yaml:"rpc_url" json:"rpc_url"`
	BackupRPCURLs []string `yaml:"backup_rpc_urls" json:"backup_rpc_urls"`
	ChainID       int64    `yaml:"chain_id" json:"chain_id"`
	// CallTimeout 单次 eth_call 超时 (秒)，0 表示不设超时
	CallTimeout int `yaml:"call_timeout" json:"call_timeout"`
}

// RPCURLs 返回主节点与备用节点列表
func (c BlockchainConfig) RPCURLs() []string {
	urls := make([]string, 0, 1+len(c.BackupRPCURLs))
	if c.RPCURL != "" {
		urls = append(urls, c.RPCURL)
	}
	for _, u := range c.BackupRPCURLs {
		if u != "" && u != c.RPCURL {
			urls = append(urls, u)
		}
	}
	return urls
}

// ContractsConfig 合约地址
type ContractsConfig struct {
	Aggregator string `yaml:"aggregator" json:"aggregator"` // metaverseByIndex
	MarketUtil string `yaml:"market_util" json:"market_util"` // tokensOfMarketByPage
	Punk       string `yaml:"punk" json:"punk"`               // LawPunks ERC721
	Dex        string `yaml:"dex" json:"dex"`                 // 市场托管合约
	Level      string `yaml:"level" json:"level"`
	Stake      string `yaml:"stake" json:"stake"`
}

// PollerConfig 轮询配置
type PollerConfig struct {
	ReloadInterval    int `yaml:"reload_interval" json:"reload_interval"` // 秒
	MaxTokenID        int `yaml:"max_token_id" json:"max_token_id"`
	MetaversePageSize int `yaml:"metaverse_page_size" json:"metaverse_page_size"`
	MarketPageSize    int `yaml:"market_page_size" json:"market_page_size"`
	MaxConcurrency    int `yaml:"max_concurrency" json:"max_concurrency"`
}

// ReloadDuration 返回两次轮询之间的间隔
func (c PollerConfig) ReloadDuration() time.Duration {
	return time.Duration(c.ReloadInterval) * time.Second
}

// StorageConfig 快照存储配置
type StorageConfig struct {
	Driver   string         `yaml:"driver" json:"driver"` // file, redis, leveldb, postgres
	File     FileConfig     `yaml:"file" json:"file"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	LevelDB  LevelDBConfig  `yaml:"leveldb" json:"leveldb"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// FileConfig 文件存储配置
type FileConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addresses []string `yaml:"addresses" json:"addresses"`
	Password  string   `yaml:"password" json:"password"`
	DB        int      `yaml:"db" json:"db"`
	PoolSize  int      `yaml:"pool_size" json:"pool_size"`
	KeyPrefix string   `yaml:"key_prefix" json:"key_prefix"`
}

// LevelDBConfig LevelDB 配置
type LevelDBConfig struct {
	Path string `yaml:"path" json:"path"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port"`
	Database        string `yaml:"database" json:"database"`
	User            string `yaml:"user" json:"user"`
	Password        string `yaml:"password" json:"password"`
	MaxConnections  int    `yaml:"max_connections" json:"max_connections"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DSN 返回 PostgreSQL 连接串
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database,
	)
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Brokers  []string `yaml:"brokers" json:"brokers"`
	ClientID string   `yaml:"client_id" json:"client_id"`
	Topic    string   `yaml:"topic" json:"topic"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(getConfigPath())
	if err == nil {
		content := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 1. 环境变量
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	// 2. 当前目录
	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	// 3. 可执行文件目录
	if exe, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(exe), "config", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config/config.yaml"
}

// expandEnvVars 展开环境变量 ${VAR:default}
func expandEnvVars(s string) string {
	result := s
	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := result[start+2 : end]
		parts := strings.SplitN(expr, ":", 2)
		varName := parts[0]
		defaultVal := ""
		if len(parts) > 1 {
			defaultVal = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			value = defaultVal
		}

		result = result[:start] + value + result[end+1:]
	}
	return result
}

// applyDefaults 应用默认配置
func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "punk-watcher"
	}
	if cfg.Service.HTTPPort == 0 {
		cfg.Service.HTTPPort = 8080
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "dev"
	}

	if cfg.Blockchain.RPCURL == "" {
		cfg.Blockchain.RPCURL = "https://global.uat.cash"
	}
	if cfg.Blockchain.ChainID == 0 {
		cfg.Blockchain.ChainID = 10000 // smartBCH mainnet
	}

	if cfg.Contracts.Aggregator == "" {
		cfg.Contracts.Aggregator = "0x99e858958e16c015f5b7B710D960498EEee76994"
	}
	if cfg.Contracts.MarketUtil == "" {
		cfg.Contracts.MarketUtil = "0xA0DB7a4D305407a9069612bdcb98AC4e75D3a556"
	}
	if cfg.Contracts.Punk == "" {
		cfg.Contracts.Punk = "0xff48aAbDDACdc8A6263A2eBC6C1A68d8c46b1bf7"
	}
	if cfg.Contracts.Dex == "" {
		cfg.Contracts.Dex = "0xc062bf9FaBE930FF8061f72b908AB1b702b3FdD6"
	}
	if cfg.Contracts.Level == "" {
		cfg.Contracts.Level = "0x9E9eACB7E5dCc374d3108598054787ccae967544"
	}
	if cfg.Contracts.Stake == "" {
		cfg.Contracts.Stake = "0xbeAAe3E87Bf71C97e458e2b9C84467bdc3b871c6"
	}

	if cfg.Poller.ReloadInterval == 0 {
		cfg.Poller.ReloadInterval = 180
	}
	if cfg.Poller.MaxTokenID == 0 {
		cfg.Poller.MaxTokenID = 10000
	}
	if cfg.Poller.MetaversePageSize == 0 {
		cfg.Poller.MetaversePageSize = 30
	}
	if cfg.Poller.MarketPageSize == 0 {
		cfg.Poller.MarketPageSize = 100
	}
	if cfg.Poller.MaxConcurrency == 0 {
		cfg.Poller.MaxConcurrency = 5
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "file"
	}
	if cfg.Storage.File.Dir == "" {
		cfg.Storage.File.Dir = "."
	}
	if len(cfg.Storage.Redis.Addresses) == 0 {
		cfg.Storage.Redis.Addresses = []string{"localhost:6379"}
	}
	if cfg.Storage.Redis.PoolSize == 0 {
		cfg.Storage.Redis.PoolSize = 10
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "punk-watcher:"
	}
	if cfg.Storage.LevelDB.Path == "" {
		cfg.Storage.LevelDB.Path = "data/snapshots"
	}
	if cfg.Storage.Postgres.Host == "" {
		cfg.Storage.Postgres.Host = "localhost"
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = 5432
	}
	if cfg.Storage.Postgres.Database == "" {
		cfg.Storage.Postgres.Database = "punk_watcher"
	}
	if cfg.Storage.Postgres.MaxConnections == 0 {
		cfg.Storage.Postgres.MaxConnections = 5
	}
	if cfg.Storage.Postgres.MaxIdleConns == 0 {
		cfg.Storage.Postgres.MaxIdleConns = 2
	}
	if cfg.Storage.Postgres.ConnMaxLifetime == 0 {
		cfg.Storage.Postgres.ConnMaxLifetime = 3600
	}

	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = cfg.Service.Name
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "staking-snapshot-updated"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 14
	}
}

// applyEnvOverrides 从环境变量覆盖配置
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENV"); v != "" {
		cfg.Service.Env = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Service.HTTPPort = port
		}
	}

	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Blockchain.RPCURL = v
	}

	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.Storage.File.Dir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addresses = strings.Split(v, ",")
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
