// Package config provides configuration management for realmd.
//
// Configuration is read from a YAML file, layered over built-in defaults and
// then overridden from the environment. It is validated as a whole and every
// problem is reported at once.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//
// or, with a .env file and environment overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml", ".env")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention REALMD_SECTION_FIELD:
//
//   - REALMD_SERVER_MAX_CLIENTS overrides server.max_clients
//   - REALMD_UDP_LISTEN_ADDRESS overrides udp.listen_address
//   - REALMD_SCRIPTS_ASSEMBLIES overrides scripts.assemblies (comma separated)
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// The loaded *Config is passed explicitly to the components that need it;
// there is no package-level instance.
package config
