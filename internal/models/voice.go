package models

// DefaultVoicePreset is the bundled narrator sample used when nothing is uploaded.
const DefaultVoicePreset = "Islam.wav"

// VoiceReference selects the narration voice: either an uploaded sample or a
// named preset. The zero value is the default preset.
type VoiceReference struct {
	uploaded []byte
	preset   string
}

// UploadedVoice wraps user-supplied audio bytes.
func UploadedVoice(data []byte) VoiceReference {
	return VoiceReference{uploaded: data}
}

// PresetVoice names a bundled or engine-provided voice.
func PresetVoice(name string) VoiceReference {
	return VoiceReference{preset: name}
}

// IsUploaded reports whether the reference carries uploaded bytes.
func (v VoiceReference) IsUploaded() bool {
	return len(v.uploaded) > 0
}

// Uploaded returns the uploaded bytes, or nil for a preset.
func (v VoiceReference) Uploaded() []byte {
	return v.uploaded
}

// Preset returns the preset name, falling back to DefaultVoicePreset.
func (v VoiceReference) Preset() string {
	if v.IsUploaded() {
		return ""
	}
	if v.preset == "" {
		return DefaultVoicePreset
	}
	return v.preset
}

func (v VoiceReference) String() string {
	if v.IsUploaded() {
		return "uploaded"
	}
	return "preset:" + v.Preset()
}
