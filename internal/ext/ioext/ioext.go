// Package ioext supplies the terminal-detection policy SPEC_FULL.md
// section B assigns to `mattn/go-isatty`: a file's default `:setvbuf`
// mode depends on whether its underlying fd is a terminal, exactly as
// reference Lua's liolib.c picks line-buffering for a tty and full
// buffering otherwise.
package ioext

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Mode is a `:setvbuf` buffering mode, per spec.md 4.9.
type Mode string

const (
	NoBuf   Mode = "no"
	LineBuf Mode = "line"
	FullBuf Mode = "full"
)

// DefaultMode reports the buffering mode a freshly opened or inherited
// file handle should report from `:setvbuf()` with no explicit
// argument: line-buffered when the fd is an interactive terminal
// (including a cygwin pty), fully buffered otherwise.
func DefaultMode(f *os.File) Mode {
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return LineBuf
	}
	return FullBuf
}
