package config

import (
	"github.com/joho/godotenv"
)

// LoadDotEnv reads a .env file into the environment. Variables already
// set are not overridden; a missing file is returned as an error the
// caller may ignore.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}
