package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warning error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	Storage   Storage
}

type Storage struct {
	Kind        string `env:"LIBRARY_STORE" envDefault:"json" validate:"oneof=json sqlite"`
	DataDir     string `env:"LIBRARY_DATA_DIR" envDefault:"data" validate:"required"`
	BooksFile   string `env:"LIBRARY_BOOKS_FILE" envDefault:"livres.json" validate:"required"`
	MembersFile string `env:"LIBRARY_MEMBERS_FILE" envDefault:"membres.json" validate:"required"`
	HistoryFile string `env:"LIBRARY_HISTORY_FILE" envDefault:"historique.csv" validate:"required"`
	DBFile      string `env:"LIBRARY_DB_FILE" envDefault:"library.db" validate:"required"`
}

// BooksPath, MembersPath, HistoryPath and DBPath resolve the store files
// against DataDir. Absolute file names are kept as they are.
func (s Storage) BooksPath() string   { return s.resolve(s.BooksFile) }
func (s Storage) MembersPath() string { return s.resolve(s.MembersFile) }
func (s Storage) HistoryPath() string { return s.resolve(s.HistoryFile) }
func (s Storage) DBPath() string      { return s.resolve(s.DBFile) }

func (s Storage) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}
	return cfg
}
