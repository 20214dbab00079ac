package domain

import "time"

// APIConfig describes how to reach the AI provider.
type APIConfig struct {
	Provider    string  `json:"provider"`
	Endpoint    string  `json:"endpoint"`
	APIKey      string  `json:"apiKey"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"` // 0.0–2.0 recommended, not enforced
}

// Preset is a named, reusable snapshot of an APIConfig.
type Preset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIConfig           // provider, endpoint, key, model, limits
	CreatedAt time.Time `json:"createTime"`
}

// VoiceConfig configures the text-to-speech provider.
type VoiceConfig struct {
	Enabled  bool    `json:"enabled"`
	Provider string  `json:"provider"`
	Endpoint string  `json:"endpoint"`
	APIKey   string  `json:"apiKey"`
	VoiceID  string  `json:"voiceId"`
	Speed    float64 `json:"speed"`
}

// UserSettings is the profile of the phone's owner.
type UserSettings struct {
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar"`
	Signature string `json:"signature"`
	Persona   string `json:"persona"`
	Language  string `json:"language"`
}
