package config

import "github.com/Goden-Gun/command-connector/pkg/kafka"

// ==================== MetricsConfig 默认值 ====================

// ApplyDefaults 应用 Metrics 配置默认值
func (m *MetricsConfig) ApplyDefaults() {
	if m.Addr == "" {
		m.Addr = ":9090"
	}
}

// ==================== CommandRouterConfig 默认值 ====================

// ApplyDefaults applies the command router's dial and credit-protocol
// defaults, matching commandrouter.Config.ApplyDefaults.
func (c *CommandRouterConfig) ApplyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5
	}
	if c.CommandThreads <= 0 {
		c.CommandThreads = 4
	}
	if c.InitialPermits <= 0 {
		c.InitialPermits = 5000
	}
	if c.NewPermits <= 0 {
		c.NewPermits = 2500
	}
	if c.NewPermitsThreshold <= 0 {
		c.NewPermitsThreshold = 2500
	}
	c.Audit.ApplyDefaults()
}

// ==================== CommandAuditConfig 默认值 ====================

// ApplyDefaults fills in the Kafka topic the audit trail publishes to when
// the operator hasn't set one explicitly.
func (a *CommandAuditConfig) ApplyDefaults() {
	if a.Topic == "" {
		a.Topic = kafka.DefaultAuditTopic
	}
}

// ==================== TracingConfig 默认值 ====================

// ApplyDefaults 应用 Tracing 配置默认值
func (t *TracingConfig) ApplyDefaults() {
	if t.Exporter == "" {
		t.Exporter = "stdout"
	}
	if t.SampleRatio <= 0 {
		t.SampleRatio = 1.0
	}
}

// ==================== PostgresConfig 默认值 ====================

// ApplyDefaults 应用 Postgres 配置默认值
func (p *PostgresConfig) ApplyDefaults() {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 10
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 5
	}
	if p.ConnMaxLifetimeSeconds <= 0 {
		p.ConnMaxLifetimeSeconds = 3600
	}
}
