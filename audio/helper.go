package audio

// AdjustChannels converts interleaved frames from iChs to oChs channels.
// Mono is duplicated into both channels, stereo is reduced to its left
// channel. The input is returned unchanged if the channel counts match.
func AdjustChannels(iChs, oChs int, frames []float32) []float32 {
	if iChs == oChs {
		return frames
	}

	// mono -> stereo
	if iChs == 1 && oChs == 2 {
		res := make([]float32, 0, len(frames)*2)
		for _, frame := range frames {
			res = append(res, frame, frame)
		}
		return res
	}

	// stereo -> mono
	res := make([]float32, 0, len(frames)/2)
	for i := 0; i+1 < len(frames); i += 2 {
		res = append(res, frames[i])
	}
	return res
}

// AdjustVolume scales the frames in place.
func AdjustVolume(volume float32, frames []float32) {
	if volume == 1 {
		return
	}
	for i := range frames {
		frames[i] *= volume
	}
}

// Mono returns msg reduced to a single channel.
func Mono(msg Msg) Msg {
	if msg.Channels <= 1 {
		return msg
	}
	msg.Data = AdjustChannels(msg.Channels, 1, msg.Data)
	msg.Channels = 1
	msg.Frames = len(msg.Data)
	return msg
}
