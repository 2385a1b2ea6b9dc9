package storage

import (
	"runtime"

	"colbridge/internal/config"
	"colbridge/internal/domain"
)

var supportedPlatforms = map[string][]string{
	"linux":  {"amd64", "arm64"},
	"darwin": {"amd64", "arm64"},
}

// ClientIsSupported reports whether the storage client runs on this
// platform. When it returns false there is no way the integration works.
func ClientIsSupported() bool {
	return clientSupportedOn(runtime.GOOS, runtime.GOARCH)
}

func clientSupportedOn(goos, goarch string) bool {
	for _, arch := range supportedPlatforms[goos] {
		if arch == goarch {
			return true
		}
	}
	return false
}

// CheckAvailability returns nil if the storage integration can be used, or
// an *domain.AvailabilityError with the reason it cannot. It is checked
// once, before any table is opened.
func CheckAvailability(cfg config.StorageConfig) error {
	return checkAvailability(cfg, ClientIsSupported())
}

func checkAvailability(cfg config.StorageConfig, supported bool) error {
	if !supported {
		return domain.ErrUnavailable("no storage client is available for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if cfg.Disabled {
		return domain.ErrUnavailable("disabled by STORAGE_DISABLED")
	}
	return nil
}

// IsAvailable is the boolean form of CheckAvailability.
func IsAvailable(cfg config.StorageConfig) bool {
	return CheckAvailability(cfg) == nil
}
