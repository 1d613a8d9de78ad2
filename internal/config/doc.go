// Package config provides the configuration of the blacklist ETL.
// Values start from the defaults of NewConfig and are overlaid in turn by
// the YAML configuration file, the environment and command line flags.
package config
