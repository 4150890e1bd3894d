package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with pointer fields so absent keys leave
// the environment-derived value alone.
type fileConfig struct {
	DataDir             *string   `yaml:"data_dir"`
	DBFile              *string   `yaml:"db_file"`
	ListenAddress       *string   `yaml:"listen_address"`
	UDPPort             *int      `yaml:"udp_port"`
	HTTPPort            *int      `yaml:"http_port"`
	MaxHTTPConns        *int      `yaml:"max_http_conns"`
	IngestQueueSize     *int      `yaml:"ingest_queue_size"`
	SubscriberBuffer    *int      `yaml:"subscriber_buffer"`
	APIMaxBodyBytes     *int      `yaml:"api_max_body_bytes"`
	DisplayNameCacheTTL *Duration `yaml:"display_name_cache_ttl"`
	Retention           *Duration `yaml:"retention"`
	RetentionSchedule   *string   `yaml:"retention_schedule"`
	GeoIPDB             *string   `yaml:"geoip_db"`
	RedisAddr           *string   `yaml:"redis_addr"`
	RedisKey            *string   `yaml:"redis_key"`
	AdminToken          *string   `yaml:"admin_token"`
}

func applyFile(cfg *Config, path string, errs *[]string) {
	data, err := os.ReadFile(path)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("config file %s: %v", path, err))
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		*errs = append(*errs, fmt.Sprintf("config file %s: %v", path, err))
		return
	}

	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.DBFile != nil {
		cfg.DBFile = *fc.DBFile
	}
	if fc.ListenAddress != nil {
		cfg.ListenAddress = *fc.ListenAddress
	}
	if fc.UDPPort != nil {
		cfg.UDPPort = *fc.UDPPort
	}
	if fc.HTTPPort != nil {
		cfg.HTTPPort = *fc.HTTPPort
	}
	if fc.MaxHTTPConns != nil {
		cfg.MaxHTTPConns = *fc.MaxHTTPConns
	}
	if fc.IngestQueueSize != nil {
		cfg.IngestQueueSize = *fc.IngestQueueSize
	}
	if fc.SubscriberBuffer != nil {
		cfg.SubscriberBuffer = *fc.SubscriberBuffer
	}
	if fc.APIMaxBodyBytes != nil {
		cfg.APIMaxBodyBytes = *fc.APIMaxBodyBytes
	}
	if fc.DisplayNameCacheTTL != nil {
		cfg.DisplayNameCacheTTL = fc.DisplayNameCacheTTL.Std()
	}
	if fc.Retention != nil {
		cfg.Retention = fc.Retention.Std()
	}
	if fc.RetentionSchedule != nil {
		cfg.RetentionSchedule = *fc.RetentionSchedule
	}
	if fc.GeoIPDB != nil {
		cfg.GeoIPDB = *fc.GeoIPDB
	}
	if fc.RedisAddr != nil {
		cfg.RedisAddr = *fc.RedisAddr
	}
	if fc.RedisKey != nil {
		cfg.RedisKey = *fc.RedisKey
	}
	if fc.AdminToken != nil {
		cfg.AdminToken = *fc.AdminToken
	}
}
