package studio

import (
	"os"
	"strings"
)

// fallbackDeviceID is used when no fingerprint source is available, so a
// stripped-down install can still verify against the license service.
const fallbackDeviceID = "unknown-device"

// DeviceID resolves the machine fingerprint the license service binds to.
// Resolution order: SONOREPORT_DEVICE_ID env var, then the configured id
// file, then the fixed fallback. The fingerprint itself is produced by the
// installer and is opaque to this process.
func DeviceID(idFile string) string {
	if v := strings.TrimSpace(os.Getenv("SONOREPORT_DEVICE_ID")); v != "" {
		return v
	}
	if idFile != "" {
		if raw, err := os.ReadFile(idFile); err == nil {
			if v := strings.TrimSpace(string(raw)); v != "" {
				return v
			}
		}
	}
	return fallbackDeviceID
}
