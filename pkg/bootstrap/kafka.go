package bootstrap

import "github.com/Goden-Gun/command-connector/pkg/kafka"

// InitKafka initializes a shared Kafka manager.
func InitKafka(cfg kafka.Config) (*kafka.Manager, error) {
	return kafka.NewManager(cfg)
}
