// conf/utils.go: path and tool helpers
package conf

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the config search paths for the current OS.
// If one of them already holds config.yaml, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", AppName),
			".",
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", AppName),
			filepath.Join("/etc", AppName),
			".",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, ConfigName+".yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// defaultDatabasePath places the database in the user data directory, falling
// back to the working directory.
func defaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return AppName + ".db"
	}
	if runtime.GOOS == osWindows {
		return filepath.Join(homeDir, "AppData", "Local", AppName, AppName+".db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, AppName+".db")
	}
	return filepath.Join(homeDir, ".local", "share", AppName, AppName+".db")
}

// DefaultWorkers picks a worker count from the physical core count, leaving
// one core for the commit loop on larger machines.
func DefaultWorkers() int {
	cores := cpuid.CPU.PhysicalCores
	if cores <= 0 || cores > runtime.NumCPU() {
		cores = runtime.NumCPU()
	}
	if cores > 2 {
		cores--
	}
	return max(cores, 1)
}

// CPUDescription returns a one line CPU summary for `stats`.
func CPUDescription() string {
	return fmt.Sprintf("%s (%d physical / %d logical cores)",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
}

// GetFfmpegBinaryName returns the binary name for ffmpeg based on the current OS.
func GetFfmpegBinaryName() string {
	if runtime.GOOS == osWindows {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// ValidateToolPath checks if a tool is available, either at an explicit path
// or in the system PATH, and returns the usable path.
func ValidateToolPath(configuredPath, toolName string) (string, error) {
	if configuredPath != "" {
		if info, err := os.Stat(configuredPath); err == nil && !info.IsDir() {
			return configuredPath, nil
		}
		GetLogger().Warn("configured tool path invalid or not found, checking system PATH",
			logger.String("configured_path", configuredPath),
			logger.String("tool", toolName))
	}

	pathFromLookPath, err := exec.LookPath(toolName)
	if err == nil {
		return pathFromLookPath, nil
	}

	if configuredPath != "" {
		return "", fmt.Errorf("tool '%s' not found at configured path '%s' or in system PATH", toolName, configuredPath)
	}
	return "", fmt.Errorf("tool '%s' not found in system PATH and no path configured", toolName)
}

// moveFile moves a file from src to dst, working across devices
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("error copying file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("error closing destination file: %w", err)
	}

	return os.Remove(src)
}
