// Package config provides the YAML/env configuration types a
// command-connector process loads: dial and credit-protocol tuning for
// commandrouter, plus the ambient Redis, Kafka, JWT, and tracing settings
// its bootstrap helpers wire up around it.
//
// Usage:
//
//	import "github.com/Goden-Gun/command-connector/pkg/config"
//
//	cfg, err := config.LoadConnectorConfig()
//	if err != nil {
//	    return err
//	}
//	cfg.CommandRouter.ApplyDefaults()
//
// A host embedding only part of this connector's config can also compose
// its own struct out of the individual pieces:
//
//	type MyConfig struct {
//	    App   config.AppConfig   `yaml:"app" mapstructure:"app"`
//	    Redis config.RedisConfig `yaml:"redis" mapstructure:"redis"`
//	    Log   config.LogConfig   `yaml:"log" mapstructure:"log"`
//	}
package config
