package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ConvertIntervalToMinutes converts interval strings like "5m", "1h", "4h" to minute numbers.
// Unparseable input is returned as-is.
func ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

// CandidatePaths lists where a price file for symbol/interval may live under dataRoot:
//
//	{root}/{SYMBOL}/{minutes}/candles.csv
//	{root}/{SYMBOL}_{interval}.csv
//	{root}/{SYMBOL}.csv
func CandidatePaths(dataRoot, symbol, interval string) []string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	paths := []string{
		filepath.Join(dataRoot, symbol, ConvertIntervalToMinutes(interval), "candles.csv"),
	}
	if interval != "" {
		paths = append(paths, filepath.Join(dataRoot, fmt.Sprintf("%s_%s.csv", symbol, interval)))
	}
	return append(paths, filepath.Join(dataRoot, symbol+".csv"))
}

// FindDataFile returns the first existing candidate path for symbol/interval
func FindDataFile(dataRoot, symbol, interval string) (string, error) {
	attempted := CandidatePaths(dataRoot, symbol, interval)
	for _, path := range attempted {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no data file found for %s %s, tried: %s", symbol, interval, strings.Join(attempted, ", "))
}
