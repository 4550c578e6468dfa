package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"schoolgate/internal/config"
	"schoolgate/internal/geo"
	"schoolgate/internal/notify"
	"schoolgate/internal/offline"
	"schoolgate/internal/qr"
)

// Kiosk is the caregiver-device agent: it registers with the API, pulls
// fresh QR codes for the children given on the command line and caches them
// locally so the codes stay displayable without connectivity.
//
// Usage: kiosk <device-id> <staff-id> <child-id>...
func main() {
	cfg := config.Load()
	if len(os.Args) < 4 {
		log.Fatal("usage: kiosk <device-id> <staff-id> <child-id>...")
	}
	deviceID, staffID, childIDs := os.Args[1], os.Args[2], os.Args[3:]

	ctx := context.Background()
	base := "http://localhost:" + cfg.HTTPPort
	client := &http.Client{Timeout: 15 * time.Second}

	fileStore, err := offline.NewFileStore(cfg.OfflineDir)
	if err != nil {
		log.Fatalf("offline store init failed: %v", err)
	}
	codec := qr.NewCodec(cfg.QRSigningKey, cfg.QRMaxAge)
	cache := offline.NewCache(fileStore, codec, cfg.OfflineTTL)
	prefs := offline.NewPrefs(fileStore)

	helper := notify.NewHelper(consolePlatform{}, prefs)
	helper.Initialize(ctx)

	token, err := register(client, base, deviceID, staffID)
	if err != nil {
		log.Printf("registration failed, serving cached codes only: %v", err)
		listCached(ctx, cache)
		return
	}

	for _, childID := range childIDs {
		name, png, err := fetchQR(client, base, token, childID)
		if err != nil {
			log.Printf("QR fetch for %s failed, keeping cached copy: %v", childID, err)
			continue
		}
		cache.Store(ctx, childID, name, png)
		log.Printf("cached QR for %s (%d bytes)", childID, len(png))
	}

	verifyLocation(ctx, cfg, prefs)
	listCached(ctx, cache)
}

func register(client *http.Client, base, deviceID, staffID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"deviceId": deviceID, "staffId": staffID})
	resp, err := client.Post(base+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("register: %s", resp.Status)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func fetchQR(client *http.Client, base, token, childID string) (name string, png []byte, err error) {
	req, err := http.NewRequest(http.MethodGet, base+"/children/"+childID+"/qr", nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("qr fetch: %s", resp.Status)
	}
	png, err = io.ReadAll(resp.Body)
	return resp.Header.Get("X-QR-Child-Name"), png, err
}

// verifyLocation is a self-check for staff devices: warn when the kiosk is
// running away from the school site. Advisory only.
func verifyLocation(ctx context.Context, cfg config.App, prefs *offline.Prefs) {
	settings := prefs.Load(ctx)
	if !settings.LocationVerifyEnabled && !cfg.LocationVerify {
		return
	}
	locator := geo.NewLocator(envProvider{}, 10*time.Second)
	fix, err := locator.Current(ctx)
	if err != nil {
		log.Printf("location check skipped: %v", err)
		return
	}
	lat, lon := cfg.SchoolLat, cfg.SchoolLon
	if settings.SchoolLat != nil && settings.SchoolLon != nil {
		lat, lon = *settings.SchoolLat, *settings.SchoolLon
	}
	if !geo.IsWithinRange(fix.Lat, fix.Lon, lat, lon, cfg.GeofenceRadiusM, fix.AccuracyM) {
		log.Printf("WARNING: device is %.0f m from the school reference point",
			geo.DistanceMeters(fix.Lat, fix.Lon, lat, lon))
	}
}

func listCached(ctx context.Context, cache *offline.Cache) {
	entries := cache.GetAll(ctx)
	log.Printf("%d cached QR code(s):", len(entries))
	for _, e := range entries {
		log.Printf("  %s (%s) valid until %s", e.ChildID, e.ChildName, e.ExpiresAt.Format(time.RFC3339))
	}
}

// consolePlatform satisfies notify.Platform for a headless kiosk: there is
// no OS prompt, so permission is always granted and notifications go to the
// log.
type consolePlatform struct{}

func (consolePlatform) Permission() notify.Permission        { return notify.PermissionGranted }
func (consolePlatform) RequestPermission() notify.Permission { return notify.PermissionGranted }
func (consolePlatform) Send(title, body string) error {
	log.Printf("[notification] %s: %s", title, body)
	return nil
}

// envProvider reads the device position from DEVICE_LAT/DEVICE_LON; kiosks
// are stationary, so a configured position stands in for a GPS fix.
type envProvider struct{}

func (envProvider) Current(context.Context) (geo.Fix, error) {
	var fix geo.Fix
	if _, err := fmt.Sscanf(os.Getenv("DEVICE_LAT"), "%f", &fix.Lat); err != nil {
		return geo.Fix{}, fmt.Errorf("DEVICE_LAT not set")
	}
	if _, err := fmt.Sscanf(os.Getenv("DEVICE_LON"), "%f", &fix.Lon); err != nil {
		return geo.Fix{}, fmt.Errorf("DEVICE_LON not set")
	}
	fix.At = time.Now()
	return fix, nil
}
