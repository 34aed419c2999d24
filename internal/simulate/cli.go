package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initializes the global logger. With logFile set, lines go to
// both stdout and the file; the returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	out := io.Writer(os.Stdout)
	var closer io.Closer = io.NopCloser(nil)

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}
