// Package config loads the application configuration.
//
// Configuration comes from environment variables, optionally seeded from a
// .env file. Defaults are declared as struct tags on each section's Config
// type and bound into Viper by reflection, so every key is overridable from
// the environment using underscore-joined names, e.g.
//
//	STORAGE_ENDPOINT=s3.amazonaws.com
//	POOL_MAX_CONNECTIONS=8
//	ARCHIVE_ROOT=/data/scenes
//	SCHEDULER_ENABLED=true
package config
