// Package notify gives best-effort user feedback after a successful
// check-in or check-out. Nothing here is required for the primary flow to be
// correct, so no operation ever returns an error to its caller.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"schoolgate/internal/offline"
)

// Permission mirrors the platform notification permission state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Platform is the OS notification surface the helper drives.
type Platform interface {
	Permission() Permission
	RequestPermission() Permission
	Send(title, body string) error
}

// Helper wraps the platform with the stored user preference.
type Helper struct {
	platform Platform
	prefs    *offline.Prefs
}

// NewHelper builds a helper.
func NewHelper(platform Platform, prefs *offline.Prefs) *Helper {
	return &Helper{platform: platform, prefs: prefs}
}

// Initialize applies the stored preference (default: enabled). Permission is
// only requested when the platform state is still undetermined.
func (h *Helper) Initialize(ctx context.Context) {
	if !h.prefs.Load(ctx).NotificationsEnabled {
		return
	}
	if h.platform.Permission() == PermissionDefault {
		h.platform.RequestPermission()
	}
}

// CheckPermission reflects the platform state without prompting.
func (h *Helper) CheckPermission() Permission { return h.platform.Permission() }

// RequestPermission prompts once; the result is not persisted here.
func (h *Helper) RequestPermission() Permission { return h.platform.RequestPermission() }

// Notify sends a notification if permission is granted, otherwise warns and
// no-ops. Send failures are logged, never raised.
func (h *Helper) Notify(title, body string) {
	if h.platform.Permission() != PermissionGranted {
		log.Printf("notification suppressed (permission not granted): %s", title)
		return
	}
	if err := h.platform.Send(title, body); err != nil {
		log.Printf("notification send failed: %v", err)
	}
}

// NotifyCheckIn announces a successful check-in.
func (h *Helper) NotifyCheckIn(childName string, at time.Time) {
	h.Notify(CheckInMessage(childName, at))
}

// NotifyCheckOut announces a successful check-out.
func (h *Helper) NotifyCheckOut(childName string, at time.Time) {
	h.Notify(CheckOutMessage(childName, at))
}

// CheckInMessage is the fixed check-in template, shared with the worker.
func CheckInMessage(childName string, at time.Time) (title, body string) {
	return "Checked In", fmt.Sprintf("%s was checked in at %s.", childName, at.Format("3:04 PM"))
}

// CheckOutMessage is the fixed check-out template, shared with the worker.
func CheckOutMessage(childName string, at time.Time) (title, body string) {
	return "Checked Out", fmt.Sprintf("%s was checked out at %s.", childName, at.Format("3:04 PM"))
}
