package config

import "github.com/joho/godotenv"

// LoadEnv loads a .env file from the working directory. Callers decide
// what a missing file means; os.IsNotExist distinguishes that case.
func LoadEnv() error {
	return godotenv.Load()
}
