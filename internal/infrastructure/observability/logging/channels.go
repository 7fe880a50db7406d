// Package logging provides structured logging channels for CivQuest
// operations with multi-tenant support and performance correlation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	// System channels
	ChannelSystem   Channel = "system"   // General system operations
	ChannelStartup  Channel = "startup"  // Application startup and initialization
	ChannelShutdown Channel = "shutdown" // Application shutdown and cleanup

	// Business logic channels
	ChannelAuth       Channel = "auth"       // Authentication and session handling
	ChannelVisibility Channel = "visibility" // Map visibility resolution passes
	ChannelPlatform   Channel = "platform"   // Upstream ArcGIS probe traffic
	ChannelCache      Channel = "cache"      // Sharing cache operations

	// Infrastructure channels
	ChannelDatabase Channel = "database" // Database operations and queries
	ChannelTenant   Channel = "tenant"   // Multi-tenant operations
	ChannelStream   Channel = "stream"   // Websocket push connections

	// Performance and monitoring channels
	ChannelPerf Channel = "performance" // Performance monitoring and metrics

	// Development and debugging channels
	ChannelDebug Channel = "debug" // Debug information
	ChannelTrace Channel = "trace" // Detailed tracing information
)

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channels map[Channel]*slog.Logger
	config   *LoggerConfig
	baseDir  string
	configMu sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool   `json:"outputToFile"`    // Whether to write logs to files
	OutputToConsole bool   `json:"outputToConsole"` // Whether to write logs to console
	LogDirectory    string `json:"logDirectory"`    // Directory for log files

	JSONFormat      bool   `json:"jsonFormat"`      // Use JSON format for structured logging
	IncludeSource   bool   `json:"includeSource"`   // Include source file and line in logs
	TimestampFormat string `json:"timestampFormat"` // Timestamp format for logs

	DefaultLevel  slog.Level             `json:"defaultLevel"`  // Default log level
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"` // Per-channel log levels
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    true,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   true,
		TimestampFormat: time.RFC3339,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level), // Start empty to respect DefaultLevel
	}
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		config:   config,
		baseDir:  config.LogDirectory,
	}

	if config.OutputToFile {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	channels := []Channel{
		ChannelSystem, ChannelStartup, ChannelShutdown,
		ChannelAuth, ChannelVisibility, ChannelPlatform, ChannelCache,
		ChannelDatabase, ChannelTenant, ChannelStream,
		ChannelPerf,
		ChannelDebug, ChannelTrace,
	}

	for _, channel := range channels {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

// createChannelLogger creates a slog.Logger for a specific channel
func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer

	if cl.config.OutputToConsole {
		writers = append(writers, os.Stdout)
	}

	if cl.config.OutputToFile {
		filename := fmt.Sprintf("%s.log", string(channel))
		logPath := filepath.Join(cl.config.LogDirectory, filename)

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}

		writers = append(writers, file)
	}

	var writer io.Writer
	if len(writers) == 1 {
		writer = writers[0]
	} else if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	} else {
		writer = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	logger := slog.New(handler).With(slog.String("channel", string(channel)))

	return logger, nil
}

func (cl *ChanneledLogger) System() *slog.Logger     { return cl.channels[ChannelSystem] }
func (cl *ChanneledLogger) Startup() *slog.Logger    { return cl.channels[ChannelStartup] }
func (cl *ChanneledLogger) Shutdown() *slog.Logger   { return cl.channels[ChannelShutdown] }
func (cl *ChanneledLogger) Auth() *slog.Logger       { return cl.channels[ChannelAuth] }
func (cl *ChanneledLogger) Visibility() *slog.Logger { return cl.channels[ChannelVisibility] }
func (cl *ChanneledLogger) Platform() *slog.Logger   { return cl.channels[ChannelPlatform] }
func (cl *ChanneledLogger) Cache() *slog.Logger      { return cl.channels[ChannelCache] }
func (cl *ChanneledLogger) Database() *slog.Logger   { return cl.channels[ChannelDatabase] }
func (cl *ChanneledLogger) Tenant() *slog.Logger     { return cl.channels[ChannelTenant] }
func (cl *ChanneledLogger) Stream() *slog.Logger     { return cl.channels[ChannelStream] }
func (cl *ChanneledLogger) Perf() *slog.Logger       { return cl.channels[ChannelPerf] }
func (cl *ChanneledLogger) Debug() *slog.Logger      { return cl.channels[ChannelDebug] }
func (cl *ChanneledLogger) Trace() *slog.Logger      { return cl.channels[ChannelTrace] }

// GetChannel returns a logger for a specific channel
func (cl *ChanneledLogger) GetChannel(channel Channel) *slog.Logger {
	if logger, exists := cl.channels[channel]; exists {
		return logger
	}
	// Fallback to system channel
	return cl.channels[ChannelSystem]
}

// WithTenant returns a logger with tenant context
func (cl *ChanneledLogger) WithTenant(channel Channel, tenantID string) *slog.Logger {
	logger := cl.GetChannel(channel)
	return logger.With(slog.String("tenantId", tenantID))
}

// WithOperation returns a logger with operation context
func (cl *ChanneledLogger) WithOperation(channel Channel, operation string) *slog.Logger {
	logger := cl.GetChannel(channel)
	return logger.With(slog.String("operation", operation))
}

// SetChannelLevel updates the level for a channel and rebuilds its logger.
func (cl *ChanneledLogger) SetChannelLevel(channel Channel, level slog.Level) error {
	cl.configMu.Lock()
	cl.config.ChannelLevels[channel] = level
	cl.configMu.Unlock()

	channelLogger, err := cl.createChannelLogger(channel)
	if err != nil {
		return fmt.Errorf("failed to rebuild logger for channel %s: %w", channel, err)
	}
	cl.channels[channel] = channelLogger
	return nil
}
