//go:build unix

package ffmpeg

import (
	"errors"
	"os"
	"syscall"
)

// terminate asks the process to stop. ffmpeg finalises the container on
// SIGTERM; exec.Cmd.WaitDelay escalates to SIGKILL if it does not exit.
func terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
