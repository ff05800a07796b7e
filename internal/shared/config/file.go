package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML file. Numbers are kept as strings so
// the same parsing path serves env values and file values.
type fileConfig struct {
	Env    string `yaml:"env"`
	Server struct {
		Port             string   `yaml:"port"`
		CORSAllowOrigins []string `yaml:"corsAllowOrigins"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Storage struct {
		Type     string `yaml:"type"`
		LocalDir string `yaml:"localDir"`
		S3       struct {
			Region   string `yaml:"region"`
			Bucket   string `yaml:"bucket"`
			Prefix   string `yaml:"prefix"`
			KMSKeyID string `yaml:"kmsKeyId"`
		} `yaml:"s3"`
		Minio struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"accessKey"`
			SecretKey string `yaml:"secretKey"`
			Bucket    string `yaml:"bucketName"`
			Region    string `yaml:"region"`
			UseSSL    bool   `yaml:"useSSL"`
		} `yaml:"minio"`
	} `yaml:"storage"`
	Vision struct {
		Backend        string `yaml:"backend"`
		Endpoint       string `yaml:"endpoint"`
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		TimeoutSeconds string `yaml:"timeoutSeconds"`
	} `yaml:"vision"`
	Report struct {
		APIKey         string `yaml:"apiKey"`
		BaseURL        string `yaml:"baseUrl"`
		Model          string `yaml:"model"`
		Language       string `yaml:"language"`
		TimeoutSeconds string `yaml:"timeoutSeconds"`
	} `yaml:"report"`
	Parser struct {
		Strategy string `yaml:"strategy"`
	} `yaml:"parser"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		JWTIssuer string `yaml:"jwtIssuer"`
	} `yaml:"auth"`
	RateLimit struct {
		AnalyzePerMinute string `yaml:"analyzePerMinute"`
		Burst            string `yaml:"burst"`
	} `yaml:"rateLimit"`
}

func loadFile(path string) (fileConfig, error) {
	var cfg fileConfig
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
