package logger

import (
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Outside of dev mode, records go through the
// otelzap bridge to the global OpenTelemetry log provider.
func New(isDev bool) (*zap.Logger, error) {
	if !isDev {
		logger := zap.New(otelzap.NewCore("github.com/qbotlabs/twitchkit"))

		return logger, nil
	}

	err := os.MkdirAll("./tmp/logs", 0o755)
	if err != nil {
		return nil, errors.Join(errors.New("failed to create the log directory"), err)
	}

	config := zap.NewDevelopmentConfig()
	config.OutputPaths = append(config.OutputPaths, "./tmp/logs/app.log")
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func Flush(logger *zap.Logger) {
	err := logger.Sync()
	if err != nil {
		fmt.Printf("sync method in logger threw error: %v\n", err)
	}
}
