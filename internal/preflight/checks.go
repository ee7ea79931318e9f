package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"xia2pipe/internal/deps"
)

const gib = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB
// available to unprivileged users. A threshold of zero only reports.
func CheckFreeSpace(name, path string, minGiB int) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := float64(st.Bavail) * float64(st.Bsize) / gib
	detail := fmt.Sprintf("%s (%.1f GiB free)", path, free)
	if free < float64(minGiB) {
		return Result{Name: name, Detail: fmt.Sprintf("%s, below %d GiB", detail, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCatalogue pings the catalogue with a 10-second timeout.
func CheckCatalogue(ctx context.Context, catalogue Pinger) Result {
	const name = "Catalogue"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := catalogue.Ping(checkCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "ping timed out"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// FromDependency converts a binary status into a Result. Missing optional
// tools pass with a note, since they only need to exist on compute nodes.
func FromDependency(status deps.Status) Result {
	name := status.Name
	if status.Available {
		return Result{Name: name, Passed: true, Detail: status.Command}
	}
	if status.Optional {
		return Result{Name: name, Passed: true, Degraded: true, Detail: status.Detail + " (optional)"}
	}
	return Result{Name: name, Detail: status.Detail}
}
