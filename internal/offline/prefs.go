package offline

import (
	"context"
	"encoding/json"
	"log"
)

const prefsKey = "prefs"

// Settings are the durable per-device preferences.
type Settings struct {
	NotificationsEnabled  bool     `json:"notificationsEnabled"`
	LocationVerifyEnabled bool     `json:"locationVerifyEnabled"`
	SchoolLat             *float64 `json:"schoolLat,omitempty"`
	SchoolLon             *float64 `json:"schoolLon,omitempty"`
}

// DefaultSettings apply when nothing has been saved yet.
func DefaultSettings() Settings {
	return Settings{NotificationsEnabled: true}
}

// Prefs reads and writes device preferences. Like the QR cache it is
// best-effort: a failed read yields defaults, a failed write is logged.
type Prefs struct {
	store Store
}

// NewPrefs builds a preference repository over a Store.
func NewPrefs(store Store) *Prefs { return &Prefs{store: store} }

// Load returns the saved settings, or defaults.
func (p *Prefs) Load(ctx context.Context) Settings {
	data, err := p.store.Load(ctx, prefsKey)
	if err != nil {
		if err != ErrNotFound {
			log.Printf("prefs read failed: %v", err)
		}
		return DefaultSettings()
	}
	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("prefs corrupt, using defaults: %v", err)
		return DefaultSettings()
	}
	return s
}

// Save persists settings.
func (p *Prefs) Save(ctx context.Context, s Settings) {
	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("prefs encode failed: %v", err)
		return
	}
	if err := p.store.Save(ctx, prefsKey, data); err != nil {
		log.Printf("prefs write failed: %v", err)
	}
}
