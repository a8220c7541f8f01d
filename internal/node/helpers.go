package node

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/powledger/config"
	klog "github.com/Klingon-tech/powledger/internal/log"
)

// InitLogging configures the global logger from cfg, writing console
// output to out. A configured log file gets JSON lines as well.
func InitLogging(cfg *config.Config, out io.Writer) error {
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
	}
	if err := klog.InitWriter(out, cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	return nil
}
