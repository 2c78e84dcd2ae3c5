package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig `yaml:"system" json:"system"`
	Web      WebConfig `yaml:"web" json:"web"`
	Database DBConfig  `yaml:"database" json:"database"`
	Logger   LogConfig `yaml:"logger" json:"logger"`
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "backoffice",
			Location: "Asia/Shanghai",
			Workdir:  "/var/backoffice",
			Debug:    true,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 1816,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "backoffice",
			User:     "postgres",
			Passwd:   "",
			MaxConn:  100,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/backoffice/backoffice.log",
		},
	}
}

// LoadConfig reads the YAML configuration file, falling back to defaults when
// the file is absent. Environment variables override file values.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		if _, err := os.Stat(cfile); err == nil {
			data, err := os.ReadFile(cfile)
			if err != nil {
				return nil, errors.Wrap(err, "read config file")
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(err, "parse config file")
			}
		}
	}
	setEnvValues(cfg)
	return cfg, nil
}

func setEnvValues(cfg *AppConfig) {
	setEnvString("BACKOFFICE_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvString("BACKOFFICE_WEB_HOST", &cfg.Web.Host)
	setEnvInt("BACKOFFICE_WEB_PORT", &cfg.Web.Port)
	setEnvString("BACKOFFICE_DB_TYPE", &cfg.Database.Type)
	setEnvString("BACKOFFICE_DB_HOST", &cfg.Database.Host)
	setEnvInt("BACKOFFICE_DB_PORT", &cfg.Database.Port)
	setEnvString("BACKOFFICE_DB_NAME", &cfg.Database.Name)
	setEnvString("BACKOFFICE_DB_USER", &cfg.Database.User)
	setEnvString("BACKOFFICE_DB_PASSWD", &cfg.Database.Passwd)
	setEnvString("BACKOFFICE_LOGGER_MODE", &cfg.Logger.Mode)
}

func setEnvString(name string, val *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*val = v
	}
}

func setEnvInt(name string, val *int) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*val = cast.ToInt(v)
	}
}

// ListenAddr returns the host:port the web server binds to.
func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}
