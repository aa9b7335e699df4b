package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err, "missing config file must not be fatal")

	assert.Equal(t, ":8080", cfg.Server.UploaderAddress)
	assert.Equal(t, ":8081", cfg.Server.TranscoderAddress)
	assert.Equal(t, ":8082", cfg.Server.WatcherAddress)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "transcode", cfg.Kafka.TranscodeTopic)
	assert.Equal(t, "transcoder-group", cfg.Kafka.TranscodeGroup)
	assert.Equal(t, "dbserver1.public.videodata", cfg.Kafka.CDCTopic)
	assert.Equal(t, "streamgo-videos", cfg.Elasticsearch.Index)
	assert.Equal(t, 4, cfg.Transcode.SegmentSeconds)
	assert.Equal(t, 3*time.Second, cfg.Transcode.ThumbnailOffset)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	content := `
server:
  uploader_address: ":9090"
s3:
  bucket_name: "videos"
  region: "eu-west-1"
kafka:
  brokers:
    - "broker-1:9092"
    - "broker-2:9092"
  transcode_topic: "ingest"
transcode:
  segment_seconds: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.UploaderAddress)
	assert.Equal(t, ":8081", cfg.Server.TranscoderAddress, "unset keys keep defaults")
	assert.Equal(t, "videos", cfg.S3.BucketName)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ingest", cfg.Kafka.TranscodeTopic)
	assert.Equal(t, 6, cfg.Transcode.SegmentSeconds)
}
