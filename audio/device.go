package audio

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	pa "github.com/gordonklaus/portaudio"
)

var hostAPIs = map[string]pa.HostApiType{
	"indevelopment":   pa.InDevelopment,
	"directsound":     pa.DirectSound,
	"mme":             pa.MME,
	"asio":            pa.ASIO,
	"soundmanager":    pa.SoundManager,
	"coreaudio":       pa.CoreAudio,
	"oss":             pa.OSS,
	"alsa":            pa.ALSA,
	"al":              pa.AL,
	"beos":            pa.BeOS,
	"wdmks":           pa.WDMkS,
	"jack":            pa.JACK,
	"wasapi":          pa.WASAPI,
	"audiosciencehpi": pa.AudioScienceHPI,
}

// HostAPINames returns the names accepted by HostAPI, sorted.
func HostAPINames() []string {
	names := []string{"default"}
	for name := range hostAPIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HostAPI returns the portaudio host api with the given name. "default"
// selects WASAPI on windows, since it has the lowest latency there, and the
// portaudio default everywhere else. portaudio must be initialized.
func HostAPI(name string) (*pa.HostApiInfo, error) {
	if name == "default" {
		if runtime.GOOS == "windows" {
			if ha, err := pa.HostApi(pa.WASAPI); err == nil {
				return ha, nil
			}
		}
		ha, err := pa.DefaultHostApi()
		if err != nil {
			return nil, fmt.Errorf("unable to determine the default host api - please provide a specific host api")
		}
		return ha, nil
	}

	t, ok := hostAPIs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown host api type: %s", name)
	}
	ha, err := pa.HostApi(t)
	if err != nil {
		return nil, fmt.Errorf("unable to load host api %s: %w", name, err)
	}
	return ha, nil
}

// Device looks up an audio device of the host api by its name. "default"
// returns the default input or output device.
func Device(name string, hostAPI *pa.HostApiInfo, input bool) (*pa.DeviceInfo, error) {
	if name == "default" {
		dev := hostAPI.DefaultOutputDevice
		if input {
			dev = hostAPI.DefaultInputDevice
		}
		if dev == nil {
			return nil, fmt.Errorf("host api %s has no default device", hostAPI.Name)
		}
		return dev, nil
	}
	for _, dev := range hostAPI.Devices {
		if strings.EqualFold(dev.Name, name) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("unknown audio device '%s'", name)
}
