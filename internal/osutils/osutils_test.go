package osutils

import (
	"os"
	"runtime"
	"testing"
)

func TestElevatedImpliesAdmin(t *testing.T) {
	if Elevated() && !IsAdmin() {
		t.Error("Expected an elevated process to be an administrator")
	}
}

func TestRootIsAdmin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses the process token on Windows")
	}
	root := os.Geteuid() == 0
	if IsAdmin() != root || Elevated() != root {
		t.Errorf("Expected IsAdmin and Elevated to be %v, got %v and %v", root, IsAdmin(), Elevated())
	}
}
