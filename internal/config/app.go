// Package config reads process configuration from the environment.
// Constructors fail loudly on missing required variables; plain
// accessors carry defaults.
package config

import "os"

func Addr() string {
	if addr, ok := os.LookupEnv("APP_ADDR"); ok {
		return addr
	}
	return ":8000"
}

// DataDir is where the file-backed stores keep their documents when no
// database is configured.
func DataDir() string {
	if dir, ok := os.LookupEnv("APP_DATA_DIR"); ok {
		return dir
	}
	return "db"
}

func LogFile() string {
	return os.Getenv("LOG_FILE")
}

func Development() bool {
	development, ok := os.LookupEnv("DEVELOPMENT")
	if !ok {
		return false
	}
	return development != "0"
}
