//go:build !linux
// +build !linux

package disk

import (
	"os"
	"runtime"

	"github.com/downfa11-org/logunit/util"
)

func adviseRandom(f *os.File) {}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer closeQuietly(d)
	if err := d.Sync(); err != nil {
		util.Debug("directory sync not supported for %s: %v", dir, err)
	}
	return nil
}
