package main

import (
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/cakephp/cakephp-sub067/cache"
	"github.com/cakephp/cakephp-sub067/internal/tracing"
	"github.com/cakephp/cakephp-sub067/orm/schema"
)

// Datasource 一个数据库连接
type Datasource struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Schema Postgres 的 schema
	Schema string `yaml:"schema"`
}

type Config struct {
	Datasources map[string]Datasource `yaml:"datasources"`
	Cache       cache.Config          `yaml:"cache"`
	Tracing     tracing.Config        `yaml:"tracing"`
}

// loadConfig 读取 YAML 配置，${VAR} 会用环境变量替换
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("ormshell: 解析配置失败: %w", err)
	}
	return &cfg, nil
}

func (c *Config) datasource(name string) (Datasource, error) {
	ds, ok := c.Datasources[name]
	if !ok {
		return Datasource{}, fmt.Errorf("ormshell: 没有名为 %s 的连接", name)
	}
	return ds, nil
}

// schemaConfig MySQL 的库名从 DSN 里面解析出来
func (d Datasource) schemaConfig() (schema.Config, error) {
	cfg := schema.Config{Schema: d.Schema}
	if d.Driver != "mysql" {
		return cfg, nil
	}
	mc, err := mysql.ParseDSN(d.DSN)
	if err != nil {
		return cfg, err
	}
	cfg.Database = mc.DBName
	return cfg, nil
}
