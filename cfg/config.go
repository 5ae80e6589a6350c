// Package cfg loads engine configuration from config.yaml with environment
// overrides (prefix MATCHBOOK_). Missing file falls back to defaults so the
// engine starts standalone.
package cfg

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Kafka struct {
	Brokers           []string      `mapstructure:"brokers"`
	TickTopic         string        `mapstructure:"tick_topic"`
	TradeTopic        string        `mapstructure:"trade_topic"`
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
}

type Config struct {
	Prod       bool   `mapstructure:"prod"`
	ListenAddr string `mapstructure:"listen_addr"`
	TickSize   string `mapstructure:"tick_size"`

	WALDir         string `mapstructure:"wal_dir"`
	WALSegmentSize int64  `mapstructure:"wal_segment_size"`
	OutboxDir      string `mapstructure:"outbox_dir"`

	SnapshotDir      string        `mapstructure:"snapshot_dir"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`

	Kafka Kafka `mapstructure:"kafka"`
}

func MustLoad() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("prod", false)
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("tick_size", "0.01")
	viper.SetDefault("wal_dir", "./data/wal")
	viper.SetDefault("wal_segment_size", 2*1024*1024)
	viper.SetDefault("outbox_dir", "./data/outbox")
	viper.SetDefault("snapshot_dir", "./data/snapshot")
	viper.SetDefault("snapshot_interval", time.Minute)
	viper.SetDefault("kafka.brokers", []string{})
	viper.SetDefault("kafka.tick_topic", "matchbook.ticks")
	viper.SetDefault("kafka.trade_topic", "matchbook.trades")
	viper.SetDefault("kafka.broadcast_interval", 250*time.Millisecond)

	viper.SetEnvPrefix("MATCHBOOK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic("couldn't load configuration, cannot start. Error: " + err.Error())
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic("failed to unmarshal config file: " + err.Error())
	}
	return &config
}
