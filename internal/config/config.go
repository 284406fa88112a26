// Package config 配置
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config 服务配置
type Config struct {
	// 服务
	ServiceName string
	HTTPPort    int
	LogLevel    string

	// 撮合
	Symbol          string
	CmdBufferSize   int
	EventBufferSize int

	// 演示流程：启动时驱动一遍公开操作
	DemoFlow bool
}

// Load 加载配置
func Load() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "matchcore"),
		HTTPPort:    getEnvInt("HTTP_PORT", 8082),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Symbol:          getEnv("SYMBOL", "BTCUSDT"),
		CmdBufferSize:   getEnvInt("CMD_BUFFER_SIZE", 1024),
		EventBufferSize: getEnvInt("EVENT_BUFFER_SIZE", 4096),

		DemoFlow: getEnvBool("DEMO_FLOW", true),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.Symbol == "" {
		return fmt.Errorf("SYMBOL must not be empty")
	}
	if c.CmdBufferSize <= 0 {
		return fmt.Errorf("invalid CMD_BUFFER_SIZE: %d", c.CmdBufferSize)
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("invalid EVENT_BUFFER_SIZE: %d", c.EventBufferSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
