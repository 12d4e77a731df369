// Package config loads service configuration from the environment.
//
// Sections are plain structs tagged for github.com/caarlos0/env/v11. A .env
// file in the working directory is read once through github.com/joho/godotenv
// before the first parse; real environment variables always take precedence.
// Parsed sections are cached by type, and Reset clears the cache in tests.
package config
