package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultResultsRoot is used when no output directory is configured
const DefaultResultsRoot = "results"

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns <root>/<SYMBOL>_<interval>
func (p *DefaultPathManager) GetDefaultOutputDir(root, symbol, interval string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	i := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		s = "UNKNOWN"
	}
	if i == "" {
		i = "unknown"
	}
	if root == "" {
		root = DefaultResultsRoot
	}

	return filepath.Join(root, fmt.Sprintf("%s_%s", s, i))
}

// EnsureDirectoryExists creates the parent directory of path
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// SymbolFromPath guesses the symbol from a data file name such as
// BTC_USDT_1d.csv or data/BTCUSDT/5/candles.csv
func SymbolFromPath(dataPath string) string {
	base := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))
	if strings.EqualFold(base, "candles") {
		dir := filepath.Dir(filepath.Dir(dataPath))
		return strings.ToUpper(filepath.Base(dir))
	}
	if interval := ExtractIntervalFromPath(base); interval != "" {
		base = strings.TrimSuffix(strings.TrimSuffix(base, interval), "_")
	}
	return strings.ToUpper(strings.ReplaceAll(base, "_", ""))
}

// DefaultOutputDir returns results/<SYMBOL>_<interval>
func DefaultOutputDir(symbol, interval string) string {
	return NewDefaultPathManager().GetDefaultOutputDir(DefaultResultsRoot, symbol, interval)
}
