/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds application configuration. The field set mirrors the
// recognized configuration options of the engine this module is grounded
// on: server, database, redis, rabbitmq, security and process, plus the
// ambient storage/logger/bpmn blocks. Several blocks (redis, rabbitmq,
// security) configure collaborators that are out of scope for this
// module (auth, the external message broker) and are recognized only so
// that a shared config file validates the same way across every service
// in a deployment.
// Содержит конфигурацию приложения
type Config struct {
	InstanceName string         `yaml:"instance_name"`
	BasePath     string         `yaml:"base_path"`
	Server       ServerConfig   `yaml:"server"`
	Database     DatabaseConfig `yaml:"database"`
	Redis        RedisConfig    `yaml:"redis"`
	RabbitMQ     RabbitMQConfig `yaml:"rabbitmq"`
	Security     SecurityConfig `yaml:"security"`
	Process      ProcessConfig  `yaml:"process"`
	Logger       LoggerConfig   `yaml:"logger"`
	Storage      StorageConfig  `yaml:"storage"`
	BPMN         BPMNConfig     `yaml:"bpmn"`
}

// ServerConfig holds the ambient health/admin server configuration
// Конфигурация административного сервера
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Debug   bool   `yaml:"debug"`
	Workers int    `yaml:"workers"` // dispatch layer worker pool size
	Reload  bool   `yaml:"reload"`
}

// DatabaseConfig holds the state store configuration. URL is interpreted
// as a filesystem path for the embedded BadgerDB store; pool_size/
// max_overflow/echo are recognized for config-schema parity with a
// relational deployment of the same service but unused by this module's
// storage backend.
// Конфигурация базы данных
type DatabaseConfig struct {
	URL         string `yaml:"url"`
	PoolSize    int    `yaml:"pool_size"`
	MaxOverflow int    `yaml:"max_overflow"`
	Echo        bool   `yaml:"echo"`
}

// RedisConfig is recognized for schema parity with the broader
// deployment's shared config file; nothing in this module's scope opens
// a redis connection.
type RedisConfig struct {
	URL                 string `yaml:"url"`
	PoolSize            int    `yaml:"pool_size"`
	DecodeResponses     bool   `yaml:"decode_responses"`
	SocketTimeout       int    `yaml:"socket_timeout"`
	SocketConnectTimeout int   `yaml:"socket_connect_timeout"`
}

// RabbitMQConfig is recognized for schema parity; the Event Bus Client in
// this module is the durable badger-backed bus, not an AMQP broker.
type RabbitMQConfig struct {
	URL                string `yaml:"url"`
	ConnectionAttempts int    `yaml:"connection_attempts"`
	RetryDelay         int    `yaml:"retry_delay"`
	Heartbeat          int    `yaml:"heartbeat"`
}

// SecurityConfig is recognized for schema parity; authentication is an
// out-of-scope collaborator for this module (see spec.md §1).
type SecurityConfig struct {
	SecretKey           string `yaml:"secret_key"`
	TokenExpireMinutes  int    `yaml:"token_expire_minutes"`
	Algorithm           string `yaml:"algorithm"`
}

// ProcessConfig holds engine-level tuning. Only ScriptTimeout reaches the
// execution path (as the task executor's timeout); MaxInstances,
// CleanupInterval and MaxRetries are loaded and validated but no engine
// component reads them.
// Конфигурация выполнения процессов
type ProcessConfig struct {
	ScriptTimeout   time.Duration `yaml:"script_timeout"`
	MaxInstances    int           `yaml:"max_instances"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxRetries      int           `yaml:"max_retries"`
}

// StorageConfig holds storage configuration
// Конфигурация хранилища
type StorageConfig struct {
	Directory string               `yaml:"directory"`
	Type      string               `yaml:"type"` // badger, leveldb, etc
	Options   StorageOptionsConfig `yaml:"options"`
}

// StorageOptionsConfig holds storage options
// Настройки опций хранилища
type StorageOptionsConfig struct {
	SyncWrites       *bool                    `yaml:"sync_writes,omitempty"`
	ValueLogFileSize *int64                   `yaml:"value_log_file_size,omitempty"`
	Performance      *BadgerPerformanceConfig `yaml:"performance,omitempty"`
}

// BadgerPerformanceConfig holds BadgerDB performance settings
// Настройки производительности BadgerDB
type BadgerPerformanceConfig struct {
	MemTableSize            *int64 `yaml:"mem_table_size,omitempty"`
	NumMemtables            *int   `yaml:"num_memtables,omitempty"`
	NumLevelZeroTables      *int   `yaml:"num_level_zero_tables,omitempty"`
	NumLevelZeroTablesStall *int   `yaml:"num_level_zero_tables_stall,omitempty"`

	ValueCacheSize *int64 `yaml:"value_cache_size,omitempty"`
	BlockCacheSize *int64 `yaml:"block_cache_size,omitempty"`
	IndexCacheSize *int64 `yaml:"index_cache_size,omitempty"`

	BaseTableSize       *int64 `yaml:"base_table_size,omitempty"`
	MaxTableSize        *int64 `yaml:"max_table_size,omitempty"`
	LevelSizeMultiplier *int   `yaml:"level_size_multiplier,omitempty"`

	NumCompactors    *int  `yaml:"num_compactors,omitempty"`
	CompactL0OnClose *bool `yaml:"compact_l0_on_close,omitempty"`

	TableLoadingMode    *string `yaml:"table_loading_mode,omitempty"`
	ValueLogLoadingMode *string `yaml:"value_log_loading_mode,omitempty"`

	BloomFalsePositive *float64 `yaml:"bloom_false_positive,omitempty"`
	DetectConflicts    *bool    `yaml:"detect_conflicts,omitempty"`
	ManageTxns         *bool    `yaml:"manage_txns,omitempty"`

	MaxBatchCount *int   `yaml:"max_batch_count,omitempty"`
	MaxBatchSize  *int64 `yaml:"max_batch_size,omitempty"`
}

// LoggerConfig holds logger configuration
// Конфигурация логгера
type LoggerConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Directory     string `yaml:"directory"`
	MaxSize       int64  `yaml:"max_size"`
	MaxAge        int    `yaml:"max_age"`
	MaxBackups    int    `yaml:"max_backups"`
	EnableConsole bool   `yaml:"enable_console"`
}

// BPMNConfig holds BPMN graph source configuration
// Конфигурация источника BPMN графов
type BPMNConfig struct {
	Path       string `yaml:"path"`
	Validation bool   `yaml:"validation"`
	// PluginDir scans for Task Registry plugins at startup; overridden by
	// the PYTHMATA_PLUGIN_DIR environment variable (spec.md §6).
	PluginDir string `yaml:"plugin_dir"`
}

// LoadConfig loads configuration from a YAML file
// Загружает конфигурацию из YAML файла
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.BasePath == "" {
		cfg.BasePath = "."
	}

	setDefaults(&cfg)
	cfg.LoadFromEnv()
	resolvePaths(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// GetPIDFilePath returns the path to the PID file
// Возвращает путь к PID файлу
func (c *Config) GetPIDFilePath() string {
	return filepath.Join(c.BasePath, c.InstanceName+".pid")
}

// setDefaults sets default values for configuration
// Устанавливает значения по умолчанию для конфигурации
func setDefaults(cfg *Config) {
	if cfg.InstanceName == "" {
		cfg.InstanceName = "bpmflow"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = 8
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = "data/badger"
	}

	if cfg.Process.ScriptTimeout == 0 {
		cfg.Process.ScriptTimeout = 30 * time.Second
	}
	if cfg.Process.MaxInstances == 0 {
		cfg.Process.MaxInstances = 100000
	}
	if cfg.Process.CleanupInterval == 0 {
		cfg.Process.CleanupInterval = time.Minute
	}
	if cfg.Process.MaxRetries == 0 {
		cfg.Process.MaxRetries = 3
	}

	if cfg.Storage.Directory == "" {
		cfg.Storage.Directory = "storage"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "badger"
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
	if cfg.Logger.Directory == "" {
		cfg.Logger.Directory = "logs"
	}
	if cfg.Logger.MaxSize == 0 {
		cfg.Logger.MaxSize = 100
	}
	if cfg.Logger.MaxAge == 0 {
		cfg.Logger.MaxAge = 30
	}
	if cfg.Logger.MaxBackups == 0 {
		cfg.Logger.MaxBackups = 10
	}

	if cfg.BPMN.Path == "" {
		cfg.BPMN.Path = "bpmn/"
	}
	if !cfg.BPMN.Validation {
		cfg.BPMN.Validation = true
	}
}

// resolvePaths resolves relative paths based on base path
// Разрешает относительные пути на основе базового пути
func resolvePaths(cfg *Config) {
	if !filepath.IsAbs(cfg.Database.URL) {
		cfg.Database.URL = filepath.Join(cfg.BasePath, cfg.Database.URL)
	}
	if !filepath.IsAbs(cfg.Storage.Directory) {
		cfg.Storage.Directory = filepath.Join(cfg.BasePath, cfg.Storage.Directory)
	}
	if !filepath.IsAbs(cfg.Logger.Directory) {
		cfg.Logger.Directory = filepath.Join(cfg.BasePath, cfg.Logger.Directory)
	}
	if !filepath.IsAbs(cfg.BPMN.Path) {
		cfg.BPMN.Path = filepath.Join(cfg.BasePath, cfg.BPMN.Path)
	}
}
