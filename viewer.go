package main

import (
	"context"
	"os/exec"
	"runtime"
)

// viewerCommand is the command line that opens a file in the default viewer of the OS.
func viewerCommand(goos, path string) []string {
	switch goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"cmd", "/c", "start", "", path}
	default:
		return []string{"xdg-open", path}
	}
}

// openInViewer starts the system's default viewer for the file and does not wait for it.
func openInViewer(ctx context.Context, path string) error {
	args := viewerCommand(runtime.GOOS, path)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
