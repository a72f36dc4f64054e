package config

import (
	"os"
	"time"

	"classroom-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// Env is "development" or "production"; production hides internal error details.
		Env string `yaml:"env"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		GraceWindow   string `yaml:"grace_window"`
		MaxRetries    int    `yaml:"max_retries"`
		ClassCacheTTL string `yaml:"class_cache_ttl"`
	} `yaml:"quiz"`
	// Directory seeds classes and users into the configured directory.
	Directory struct {
		Classes []ClassSeed `yaml:"classes"`
		Users   []UserSeed  `yaml:"users"`
	} `yaml:"directory"`
}

type ClassSeed struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Instructor string   `yaml:"instructor"`
	Students   []string `yaml:"students"`
}

type UserSeed struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Avatar string `yaml:"avatar"`
	Role   string `yaml:"role"`
}

// Load reads YAML config from path. Secrets may be overridden from the
// environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Env = v
	}
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Classes converts the class seeds to domain records.
func (c Config) Classes() []domain.Class {
	out := make([]domain.Class, 0, len(c.Directory.Classes))
	for _, s := range c.Directory.Classes {
		out = append(out, domain.Class{
			ID:           s.ID,
			Title:        s.Title,
			InstructorID: s.Instructor,
			StudentIDs:   append([]string(nil), s.Students...),
		})
	}
	return out
}

// Users converts the user seeds to domain records.
func (c Config) Users() []domain.User {
	out := make([]domain.User, 0, len(c.Directory.Users))
	for _, s := range c.Directory.Users {
		out = append(out, domain.User{ID: s.ID, Name: s.Name, Email: s.Email, Avatar: s.Avatar, Role: domain.Role(s.Role)})
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
