// Package config provides configuration types and loading for the gateway.
//
// The configuration declares the entrypoint servers, the APIs deployed at
// startup, the admin endpoint, observability settings and the optional Redis
// deployment channel. It is loaded from YAML with ${VAR:-default}
// substitution, validated as a whole, and can be watched for hot reload.
//
//	cfg, err := config.LoadConfig("gateway.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
package config
