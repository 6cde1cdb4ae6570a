// Package config loads and validates Customer Core configuration.
//
// Configuration comes from a YAML file, overlaid with CUSTOMERCORE_*
// environment variables, then validated. Secrets (the JWT signing key,
// the Redis password) belong in the environment rather than the file;
// validation refuses to start with a missing or short JWT secret.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// Loading happens once at startup; the resulting Config is read-only
// afterwards.
package config
