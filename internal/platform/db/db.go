package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"

	DefaultConfigPath = "config/config.yaml"
	jwtSecretEnv      = "INVENTORY_JWT_SECRET"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql | sqlite3
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Path     string `yaml:"path"` // sqlite3 のみ
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	TLS  bool   `yaml:"tls"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Certificate Certs          `yaml:"certificate"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if v := os.Getenv(jwtSecretEnv); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		return nil, fmt.Errorf("mode must be dev or release, got %q", cfg.Mode)
	}
	if cfg.Mode == "release" && cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required in release mode")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = DriverMySQL
	}
	if c.DB.Driver == DriverMySQL && c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Driver == DriverSQLite && c.DB.Path == "" {
		c.DB.Path = "inventory.db"
	}
	if c.Auth.JWTSecret == "" && c.Mode == "dev" {
		c.Auth.JWTSecret = "dev-secret-key"
	}
}

// Dialect は goqu のダイアレクト名（ドライバ名と同じ）
func (c DatabaseConfig) Dialect() string { return c.Driver }

func Connect(c DatabaseConfig) (*sql.DB, error) {
	switch c.Driver {
	case DriverMySQL:
		return connectMySQL(c)
	case DriverSQLite:
		return OpenSQLite(c.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func connectMySQL(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	conn, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	conn.SetMaxOpenConns(40)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return conn, nil
}

// OpenSQLite は開発・テスト用。書き込みが1本に直列化されるよう接続は1つに絞る。
// そのためトランザクション中に同じ *sql.DB で別クエリを投げるとデッドロックする点に注意。
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	conn, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
