package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database Database       `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Queue    QueueConfig    `json:"queue"`
	Blob     BlobConfig     `json:"blob"`
	Shopify  ShopifyConfig  `json:"shopify"`
	Tracking TrackingConfig `json:"tracking"`
	Sentry   SentryConfig   `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type Database struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PoolSize            int           `json:"pool_size"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

type QueueConfig struct {
	Group            string        `json:"group"`             // consumer group name
	Consumer         string        `json:"consumer"`          // consumer name within the group
	MaxAttempts      int           `json:"max_attempts"`      // max retries before DLQ
	MaxLen           int64         `json:"max_len"`           // stream max length before trim
	BackoffBase      time.Duration `json:"backoff_base"`      // base retry delay
	BlockTimeout     time.Duration `json:"block_timeout"`     // XREADGROUP block timeout
	DeadLetterStream string        `json:"dead_letter_stream"`
}

// BlobConfig points at the R2 bucket backing the blob surface for images
// that are not attached to any product.
type BlobConfig struct {
	AccountID   string `json:"account_id"`
	BucketName  string `json:"bucket_name"`
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_key"`
}

type ShopifyConfig struct {
	StoreDomain   string `json:"store_domain"`
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	WebhookSecret string `json:"webhook_secret"`
}

type TrackingConfig struct {
	BaseURL string `json:"base_url"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
