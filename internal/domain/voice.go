package domain

// Voice providers understood by the chapter-text and speech endpoints.
const (
	ProviderStandard = "standard"
	ProviderGoogle   = "google"
)

// Voice is a selectable narration voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Provider string `json:"provider"`
}

// UsesGoogle reports whether the chapter-text request should carry the Google voice flag.
func (v Voice) UsesGoogle() bool {
	return v.Provider == ProviderGoogle
}

// Voices is the catalog offered to listeners. The first entry is the default.
//
//nolint:gochecknoglobals // Static voice catalog
var Voices = []Voice{
	{ID: "vi-VN-HoaiMyNeural", Name: "Hoai My", Language: "vi", Provider: ProviderStandard},
	{ID: "vi-VN-NamMinhNeural", Name: "Nam Minh", Language: "vi", Provider: ProviderStandard},
	{ID: "vi-VN-Standard-A", Name: "Google A", Language: "vi", Provider: ProviderGoogle},
	{ID: "vi-VN-Standard-D", Name: "Google D", Language: "vi", Provider: ProviderGoogle},
	{ID: "en-US-AriaNeural", Name: "Aria", Language: "en", Provider: ProviderStandard},
}

// DefaultVoice returns the first catalog voice.
func DefaultVoice() Voice {
	return Voices[0]
}

// LookupVoice finds a voice by ID.
func LookupVoice(id string) (Voice, bool) {
	for _, v := range Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// NextVoice returns the catalog voice after id, wrapping around.
// Unknown IDs yield the default voice.
func NextVoice(id string) Voice {
	for i, v := range Voices {
		if v.ID == id {
			return Voices[(i+1)%len(Voices)]
		}
	}
	return DefaultVoice()
}
