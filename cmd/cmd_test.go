package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSubject(t *testing.T) {
	assert.Equal(t, "my_station", validateSubject("my station"))
	assert.Equal(t, "dh1tw_home_a_b__", validateSubject("dh1tw.home/a+b#*"))
	assert.Equal(t, "ok", validateSubject("ok"))
}

func TestConfigureLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	for _, lvl := range []string{"none", "error", "warn", "info", "debug"} {
		f, err := configureLogger(lvl, "")
		require.NoError(t, err, lvl)
		assert.Nil(t, f)
	}

	_, err := configureLogger("verbose", "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "ribbit.log")
	f, err := configureLogger("info", path)
	require.NoError(t, err)
	require.NotNil(t, f)
	slog.Info("hello")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func setAudioDefaults() {
	viper.Set("audio.host-api", "default")
	viper.Set("input-device.channels", 1)
	viper.Set("output-device.channels", 2)
	viper.Set("input-device.samplerate", 48000)
	viper.Set("output-device.samplerate", 48000)
	viper.Set("audio.frame-length", 960)
	viper.Set("audio.tx-buffer-length", 10)
	viper.Set("audio.vox-threshold", 0.05)
}

func TestCheckAudioParameterValues(t *testing.T) {
	defer viper.Reset()

	tests := []struct {
		key   string
		value interface{}
	}{
		{"audio.host-api", "winmm"},
		{"input-device.channels", 3},
		{"output-device.channels", 0},
		{"input-device.samplerate", 4000},
		{"audio.frame-length", 0},
		{"audio.tx-buffer-length", -1},
		{"audio.vox-threshold", 1.5},
	}

	setAudioDefaults()
	require.NoError(t, checkAudioParameterValues())

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			setAudioDefaults()
			viper.Set(tc.key, tc.value)
			err := checkAudioParameterValues()
			var pErr *parmError
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tc.key, pErr.parm)
		})
	}
}

func TestPayloadFromArgs(t *testing.T) {
	p, err := payloadFromArgs([]string{"Hello", "World!"}, false)
	require.NoError(t, err)
	assert.Len(t, p, 256)
	assert.Equal(t, "Hello World!", string(p[:12]))
	assert.Equal(t, byte(0), p[12])

	p, err = payloadFromArgs([]string{"48656c6c6f"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(p[:5]))

	_, err = payloadFromArgs([]string{"zz"}, true)
	assert.Error(t, err)
	_, err = payloadFromArgs(nil, false)
	assert.Error(t, err)
}
