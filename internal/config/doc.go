// Package config loads the tokenguard service configuration from a YAML file, dotenv
// files and environment variables, in that order of increasing precedence.
package config
