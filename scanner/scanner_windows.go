//go:build windows
// +build windows

package scanner

import (
	"os"
	"syscall"
	"time"
)

func getFileTimes(path string, info os.FileInfo) (access, change, birth time.Time) {
	winStat, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return info.ModTime(), info.ModTime(), info.ModTime()
	}
	// No status-change time on windows; last write stands in for it.
	access = time.Unix(0, winStat.LastAccessTime.Nanoseconds())
	change = time.Unix(0, winStat.LastWriteTime.Nanoseconds())
	birth = time.Unix(0, winStat.CreationTime.Nanoseconds())
	return access, change, birth
}
