package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline services.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	S3            S3Config            `mapstructure:"s3"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Transcode     TranscodeConfig     `mapstructure:"transcode"`
}

// ServerConfig carries the listen address of each binary. One config file
// serves all three processes; each reads only its own address.
type ServerConfig struct {
	UploaderAddress   string `mapstructure:"uploader_address"`
	TranscoderAddress string `mapstructure:"transcoder_address"`
	WatcherAddress    string `mapstructure:"watcher_address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// KafkaConfig configures the shared broker client. SASL/TLS fields are
// optional; leave Username empty to connect in plaintext (local dev).
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	ClientID       string   `mapstructure:"client_id"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	TLSEnabled     bool     `mapstructure:"tls_enabled"`
	TranscodeTopic string   `mapstructure:"transcode_topic"`
	TranscodeGroup string   `mapstructure:"transcode_group"`
	CDCTopic       string   `mapstructure:"cdc_topic"`
	CDCGroup       string   `mapstructure:"cdc_group"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	APIKey    string   `mapstructure:"api_key"`
	Index     string   `mapstructure:"index"`
}

// TranscodeConfig tunes the HLS worker.
type TranscodeConfig struct {
	WorkDir         string        `mapstructure:"work_dir"`
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`
	SegmentSeconds  int           `mapstructure:"segment_seconds"`
	ThumbnailOffset time.Duration `mapstructure:"thumbnail_offset"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: kafka.transcode_topic -> KAFKA_TRANSCODE_TOPIC
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.uploader_address", ":8080")
	viper.SetDefault("server.transcoder_address", ":8081")
	viper.SetDefault("server.watcher_address", ":8082")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "streamgo")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.client_id", "streamgo")
	viper.SetDefault("kafka.transcode_topic", "transcode")
	viper.SetDefault("kafka.transcode_group", "transcoder-group")
	viper.SetDefault("kafka.cdc_topic", "dbserver1.public.videodata")
	viper.SetDefault("kafka.cdc_group", "watch-sync-group")
	viper.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("elasticsearch.index", "streamgo-videos")
	viper.SetDefault("transcode.work_dir", "output")
	viper.SetDefault("transcode.ffmpeg_path", "ffmpeg")
	viper.SetDefault("transcode.segment_seconds", 4)
	viper.SetDefault("transcode.thumbnail_offset", "3s")

	err = viper.ReadInConfig()
	// Config file is optional; env vars and defaults are enough to boot.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
