// Package systemd integrates with the service manager when the daemon
// runs as a unit. Outside systemd every call is a no-op.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd the daemon finished startup.
func NotifyReady() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyStopping tells systemd a shutdown is in progress.
func NotifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// NotifyStatus publishes a human-readable status line in systemctl
// output.
func NotifyStatus(status string) {
	_, _ = daemon.SdNotify(false, fmt.Sprintf("STATUS=%s", status))
}
