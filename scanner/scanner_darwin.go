//go:build darwin
// +build darwin

package scanner

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func getFileTimes(path string, info os.FileInfo) (access, change, birth time.Time) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return info.ModTime(), info.ModTime(), info.ModTime()
	}
	// Btim carries the creation time on macOS
	return time.Unix(st.Atim.Unix()), time.Unix(st.Ctim.Unix()), time.Unix(st.Btim.Unix())
}
