package framecore

import (
	"log/slog"
	"os"
)

// vblankEnv is read by Mesa's GL drivers on X11; "0" disables vsync.
const vblankEnv = "vblank_mode"

// applyVSyncDefault disables vsync on Linux unless the caller already set
// vblank_mode. It must run before any graphics context exists.
func applyVSyncDefault(goos string, log *slog.Logger) bool {
	if goos != "linux" {
		return false
	}
	if _, ok := os.LookupEnv(vblankEnv); ok {
		return false
	}
	if err := os.Setenv(vblankEnv, "0"); err != nil {
		log.Warn("cannot disable vsync", "env", vblankEnv, "err", err)
		return false
	}
	log.Debug("vsync disabled", "env", vblankEnv)
	return true
}
