//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"os"
	"testing"
)

// The hardware tests need the 'snd-aloop' kernel module:
//
// sudo modprobe snd-aloop
//
// Without it they are skipped and only the pure tests run.

// loopbackCard stores the card number of the loopback device, or -1.
var loopbackCard = -1

func TestMain(m *testing.M) {
	if content, err := os.ReadFile("/proc/asound/cards"); err == nil {
		loopbackCard = findCard(string(content), "Loopback")
	}

	if loopbackCard == -1 {
		fmt.Println("ALSA loopback device not found, hardware tests will be skipped.")
		fmt.Println("Please run: sudo modprobe snd-aloop")
	}

	os.Exit(m.Run())
}

func requireLoopback(t *testing.T) {
	t.Helper()

	if loopbackCard == -1 {
		t.Skip("ALSA loopback device not available")
	}
}
