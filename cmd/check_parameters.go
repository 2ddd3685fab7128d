package cmd

import (
	"fmt"
	"strings"

	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/utils"
	"github.com/spf13/viper"
)

func checkAudioParameterValues() error {

	if api := viper.GetString("audio.host-api"); !utils.StringInSlice(strings.ToLower(api), audio.HostAPINames()) {
		return &parmError{
			parm: "audio.host-api",
			msg:  "allowed values are " + strings.Join(audio.HostAPINames(), ", "),
		}
	}

	if chs := viper.GetInt("input-device.channels"); chs < 1 || chs > 2 {
		return &parmError{
			parm: "input-device.channels",
			msg:  "allowed values are [1 (Mono), 2 (Stereo)]",
		}
	}

	if chs := viper.GetInt("output-device.channels"); chs < 1 || chs > 2 {
		return &parmError{
			parm: "output-device.channels",
			msg:  "allowed values are [1 (Mono), 2 (Stereo)]",
		}
	}

	for _, parm := range []string{"input-device.samplerate", "output-device.samplerate"} {
		if sr := viper.GetFloat64(parm); sr < 8000 || sr > 192000 {
			return &parmError{
				parm: parm,
				msg:  "allowed values are [8000...192000]",
			}
		}
	}

	if viper.GetInt("audio.frame-length") <= 0 {
		return &parmError{
			parm: "audio.frame-length",
			msg:  "value must be > 0",
		}
	}

	if viper.GetInt("audio.tx-buffer-length") <= 0 {
		return &parmError{
			parm: "audio.tx-buffer-length",
			msg:  "value must be > 0",
		}
	}

	if t := viper.GetFloat64("audio.vox-threshold"); t < 0 || t > 1 {
		return &parmError{
			parm: "audio.vox-threshold",
			msg:  "allowed values are [0...1]",
		}
	}

	return nil
}

type parmError struct {
	parm string
	msg  string
}

func (p *parmError) Error() string {
	return fmt.Sprintf("%v: %v", p.parm, p.msg)
}
