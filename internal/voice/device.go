package voice

import (
	"strings"

	"github.com/gordonklaus/portaudio"
)

// micKeywords mark devices that are likely the user's microphone.
var micKeywords = []string{"microphone", "mic", "built-in", "input"}

// loopbackKeywords mark virtual system-output devices that must never
// be used as a voice source.
var loopbackKeywords = []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"}

// preferredKeywords break ties toward the machine's own microphone.
var preferredKeywords = []string{"macbook", "built-in"}

// pickInputDevice selects the capture device: a non-excluded microphone
// by name, preferring the built-in one, with the system default input
// as fallback.
func pickInputDevice(excluded []string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var best *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if isExcluded(dev.Name, excluded) || isLoopback(dev.Name) {
			continue
		}
		if !isMicrophone(dev.Name) {
			continue
		}
		if best == nil || (isPreferred(dev.Name) && !isPreferred(best.Name)) {
			best = dev
		}
	}
	if best != nil {
		return best, nil
	}
	return portaudio.DefaultInputDevice()
}

func isMicrophone(name string) bool {
	return matchesAny(name, micKeywords)
}

func isLoopback(name string) bool {
	return matchesAny(name, loopbackKeywords)
}

func isPreferred(name string) bool {
	return matchesAny(name, preferredKeywords)
}

func isExcluded(name string, excluded []string) bool {
	return matchesAny(name, excluded)
}

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
