package config

import "github.com/Goden-Gun/command-connector/pkg/auth"

// ==================== 基础配置 (所有服务都需要) ====================

// AppConfig 应用基础配置
type AppConfig struct {
	Env    string `yaml:"env" mapstructure:"env"`
	Port   int    `yaml:"port" mapstructure:"port"`
	NodeID string `yaml:"node_id" mapstructure:"node_id"`
}

// LogConfig 日志配置
type LogConfig struct {
	Format       string `yaml:"format" mapstructure:"format"`
	Level        string `yaml:"level" mapstructure:"level"`
	ReportCaller bool   `yaml:"report_caller" mapstructure:"report_caller"`
}

// ==================== 基础设施配置 ====================

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Db       int    `yaml:"db" mapstructure:"db"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN                    string `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds" mapstructure:"conn_max_lifetime_seconds"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers       []string `yaml:"brokers" mapstructure:"brokers"`
	Topic         string   `yaml:"topic" mapstructure:"topic"`
	ConsumerGroup string   `yaml:"consumer_group" mapstructure:"consumer_group"`
	ClientID      string   `yaml:"client_id" mapstructure:"client_id"`
	Username      string   `yaml:"username" mapstructure:"username"`
	Password      string   `yaml:"password" mapstructure:"password"`
	SASLMechanism string   `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	TLSEnabled    bool     `yaml:"tls_enabled" mapstructure:"tls_enabled"`
}

// ==================== 认证配置 ====================

// JWTConfig is the YAML-loadable form of an auth.SimpleTokenConfig plus the
// Redis key prefix its TokenVersionStore uses. There is only one TTL: the
// version-store scheme has no separate refresh token to configure.
type JWTConfig struct {
	SecretKey        string   `yaml:"secret_key" mapstructure:"secret_key"`
	TokenTTL         Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	ClockSkew        Duration `yaml:"clock_skew" mapstructure:"clock_skew"`
	VersionKeyPrefix string   `yaml:"version_key_prefix" mapstructure:"version_key_prefix"`
}

// SimpleTokenConfig translates the YAML shape into the auth package's
// runtime config.
func (c JWTConfig) SimpleTokenConfig() auth.SimpleTokenConfig {
	return auth.SimpleTokenConfig{
		Secret:    c.SecretKey,
		TTL:       c.TokenTTL.Duration(),
		ClockSkew: c.ClockSkew.Duration(),
	}
}

// ==================== 命令路由配置 ====================

// CommandRouterConfig is the YAML-loadable form of a commandrouter.Config,
// covering both the client's dial target and its subscriber/dispatcher
// tuning. A host process decodes this via LoadConfig and translates it into
// a commandrouter.Config with pkg/routing functions attached.
type CommandRouterConfig struct {
	Address     string `yaml:"address" mapstructure:"address"`
	Insecure    bool   `yaml:"insecure" mapstructure:"insecure"`
	TLSCertFile string `yaml:"tls_cert_file" mapstructure:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file" mapstructure:"tls_key_file"`
	DialTimeout Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	ClientID      string `yaml:"client_id" mapstructure:"client_id"`
	ComponentName string `yaml:"component_name" mapstructure:"component_name"`
	Context       string `yaml:"context" mapstructure:"context"`

	CommandThreads      int   `yaml:"command_threads" mapstructure:"command_threads"`
	InitialPermits      int64 `yaml:"initial_permits" mapstructure:"initial_permits"`
	NewPermits          int64 `yaml:"new_permits" mapstructure:"new_permits"`
	NewPermitsThreshold int64 `yaml:"new_permits_threshold" mapstructure:"new_permits_threshold"`

	Audit CommandAuditConfig `yaml:"audit" mapstructure:"audit"`
}

// CommandAuditConfig controls the optional Kafka-backed audit trail.
type CommandAuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Topic   string `yaml:"topic" mapstructure:"topic"`
}

// ==================== 可观测性配置 ====================

// TracingConfig 分布式追踪配置
type TracingConfig struct {
	Exporter     string            `yaml:"exporter" mapstructure:"exporter"`
	Endpoint     string            `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName  string            `yaml:"service_name" mapstructure:"service_name"`
	Insecure     bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
	SampleRatio  float64           `yaml:"sample_ratio" mapstructure:"sample_ratio"`
	ResourceTags map[string]string `yaml:"resource_tags" mapstructure:"resource_tags"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}
