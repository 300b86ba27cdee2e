package params

import "os"

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxConfigFromEnv reads INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG and INFLUXDB_BUCKET.
// It returns nil if no URL is set.
func InfluxConfigFromEnv() *InfluxConfig {
	url := os.Getenv("INFLUXDB_URL")
	if url == "" {
		return nil
	}
	return &InfluxConfig{
		URL:    url,
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
}
