package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	BackendDrive = "drive"
	BackendS3    = "s3"
	BackendBlob  = "blob"
)

type Config struct {
	Backend string

	// Google Drive
	CredentialsFile string
	TokenFile       string

	// S3
	ApiURL     string
	AccessKey  string
	SecretKey  string
	BucketName string
	Region     string

	// gocloud.dev bucket URL, e.g. file:///data or gs://bucket
	BlobURL string

	// ProxyURL is used by every backend transport. Empty falls back to the
	// HTTP_PROXY / HTTPS_PROXY environment.
	ProxyURL string

	Delete    bool
	Overwrite bool
	Processes int
	BatchSize int
	Retries   int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found, using environment variables only")
	}

	config := &Config{
		Backend:         getEnv("BACKEND", BackendDrive),
		CredentialsFile: getEnv("DRIVE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       getEnv("DRIVE_TOKEN_FILE", ""),
		ApiURL:          getEnv("API_URL", ""),
		AccessKey:       getEnv("ACCESS_KEY", ""),
		SecretKey:       getEnv("SECRET_KEY", ""),
		BucketName:      getEnv("BUCKET_NAME", ""),
		Region:          getEnv("REGION", ""),
		BlobURL:         getEnv("BLOB_URL", ""),
		ProxyURL:        getEnv("PROXY_URL", ""),
	}

	var err error
	if config.Delete, err = getEnvBool("DELETE", false); err != nil {
		return nil, err
	}
	if config.Overwrite, err = getEnvBool("OVERWRITE", false); err != nil {
		return nil, err
	}
	if config.Processes, err = getEnvInt("PROCESSES", 4); err != nil {
		return nil, err
	}
	if config.BatchSize, err = getEnvInt("BATCH_SIZE", 4); err != nil {
		return nil, err
	}
	if config.Retries, err = getEnvInt("RETRIES", 0); err != nil {
		return nil, err
	}

	return config, nil
}

// Proxy returns the proxy function for backend transports.
func (c *Config) Proxy() (func(*http.Request) (*url.URL, error), error) {
	if c.ProxyURL == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(c.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PROXY_URL %q: %w", c.ProxyURL, err)
	}
	return http.ProxyURL(u), nil
}

// Transport returns a copy of the default transport using Proxy.
func (c *Config) Transport() (*http.Transport, error) {
	proxy, err := c.Proxy()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy
	return transport, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
