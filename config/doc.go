// Package config loads eventkit application configuration.
//
// LoadConfig reads a YAML file through Viper, then overlays environment
// variables, including those from a .env file loaded with godotenv. Files
// are found next to the binary's cmd directory or under config/ unless
// given explicitly:
//
//	cfg, err := config.Load("orders-api", config.WithEnvPrefix("ORDERS"))
//	if err != nil {
//	    return err
//	}
//	dispatchers, err := cfg.Init()
//
// A file for that application might read:
//
//	name: orders-api
//	environment: production
//	logging:
//	  level: info
//	  format: json
//	dispatchers:
//	  io:
//	    kind: pool
//	    workers: 16
//	  ui:
//	    kind: worker
//
// ORDERS_LOGGING_LEVEL=debug then overrides logging.level.
package config
