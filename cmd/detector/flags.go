package main

import (
	"flag"
	"os"
	"strconv"
)

// Flags are the command line options, each with a DETECTOR_* env
// fallback so container deployments can skip the command line.
type Flags struct {
	ConfigPath  string
	NATSURL     string
	LogLevel    string
	MetricsPort int
	ModelPath   string
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.ConfigPath, "config",
		envOrDefault("DETECTOR_CONFIG", ""),
		"path to JSON config file")
	flag.StringVar(&flags.NATSURL, "nats-url",
		envOrDefault("DETECTOR_NATS_URL", ""),
		"NATS server URL, overrides config")
	flag.StringVar(&flags.LogLevel, "log-level",
		envOrDefault("DETECTOR_LOG_LEVEL", ""),
		"log level: debug, info, warn, error")
	flag.IntVar(&flags.MetricsPort, "metrics-port",
		envIntOrDefault("DETECTOR_METRICS_PORT", 0),
		"metrics HTTP port, overrides config")
	flag.StringVar(&flags.ModelPath, "model",
		envOrDefault("DETECTOR_MODEL_PATH", ""),
		"path to ONNX model file, overrides config")

	flag.Parse()
	return flags
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
