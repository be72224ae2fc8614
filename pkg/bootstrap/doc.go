// Package bootstrap provides the initialization sequence a command-connector
// process runs before it dials its command router: logging, the Redis
// client backing pkg/auth's token-version store, the Kafka manager backing
// pkg/audit's audit trail, and OpenTelemetry tracing.
//
// Example usage:
//
//	func main() {
//	    cfg, err := config.LoadConnectorConfig()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    if err := bootstrap.InitLoggerWithFile(cfg.Log, "command-connector"); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    redisClient, err := bootstrap.InitRedis(ctx, cfg.Redis)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    versionStore := auth.NewRedisTokenVersionStore(redisClient, cfg.JWT.VersionKeyPrefix)
//
//	    kafkaMgr, err := bootstrap.InitKafka(kafka.Config{
//	        Brokers: cfg.Kafka.Brokers,
//	        Topic:   cfg.CommandRouter.Audit.Topic,
//	    })
//	    if err != nil {
//	        log.Warn(err)
//	    }
//	    recorder := audit.NewRecorder(kafkaMgr, cfg.CommandRouter.Audit.Topic)
//
//	    shutdown, err := bootstrap.InitTracing(ctx, cfg.Tracing)
//	    if err != nil {
//	        log.Warn(err)
//	    }
//	    defer shutdown(ctx)
//
//	    dialer, err := commandrouter.NewDialerWithSimpleToken(ctx, dialerOpts,
//	        nodeUserID, config.GetNodeID(), cfg.JWT.SimpleTokenConfig(), versionStore)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = dialer
//	    _ = recorder
//	}
package bootstrap
