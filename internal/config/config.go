package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	AppEnv             string
	AppAddr            string
	CORSAllowedOrigins []string

	DatabasePath string

	// RepoConfigPath names the JSON file defining the managed
	// repositories (id, path, branch, remote, read-only).
	RepoConfigPath string

	ReconcileInterval time.Duration
	ManagedExtension  string
}

func Load() (Config, error) {
	c := Config{}

	c.AppEnv = getEnv("APP_ENV", "development")
	c.AppAddr = getEnv("APP_ADDR", ":8080")
	c.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"))

	c.DatabasePath = getEnv("DB_PATH", "docrepo.db")
	c.RepoConfigPath = getEnv("REPO_CONFIG_PATH", "repos.json")

	c.ReconcileInterval = getDuration("RECONCILE_INTERVAL", 10*time.Minute)
	c.ManagedExtension = getEnv("MANAGED_EXTENSION", ".md")
	if !strings.HasPrefix(c.ManagedExtension, ".") {
		c.ManagedExtension = "." + c.ManagedExtension
	}

	return c, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	if len(res) == 0 {
		return []string{"*"}
	}
	return res
}

func (c Config) String() string {
	return fmt.Sprintf("env=%s addr=%s db=%s repos=%s interval=%s",
		c.AppEnv, c.AppAddr, c.DatabasePath, c.RepoConfigPath, c.ReconcileInterval)
}
