//go:build linux

package scanner

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func getFileTimes(path string, info os.FileInfo) (access, change, birth time.Time) {
	access, change = info.ModTime(), info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		access = time.Unix(st.Atim.Unix())
		change = time.Unix(st.Ctim.Unix())
	}
	birth = change

	// statx is the only way to get the birth time on linux
	var stx unix.Statx_t
	mask := unix.STATX_ATIME | unix.STATX_CTIME | unix.STATX_BTIME
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, mask, &stx); err != nil {
		return access, change, birth
	}
	if stx.Mask&unix.STATX_ATIME != 0 {
		access = statxTime(stx.Atime)
	}
	if stx.Mask&unix.STATX_CTIME != 0 {
		change = statxTime(stx.Ctime)
		birth = change
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		birth = statxTime(stx.Btime)
	}
	return access, change, birth
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}
