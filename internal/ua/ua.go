// internal/ua/ua.go
//
// User-Agent parsing helpers.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  Notification
// footers only need a short browser line and a platform line, so Info
// offers both alongside the raw attributes.
package ua

import (
	"fmt"
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Info carries the UA attributes shown to form recipients.
//
// Example (Chrome on macOS):
//
//	Browser   "Chrome"
//	Version   "125.0.6422"
//	OS        "macOS"
//	OSVersion "14.4"
//	Device    "Desktop"
//	IsBot     false
//
// Device will be one of: "Desktop", "Mobile", "Tablet", "Bot", or "Other".
type Info struct {
	Browser   string
	Version   string
	OS        string
	OSVersion string
	Device    string
	IsBot     bool
	Raw       string
}

// Parse converts a raw header into an Info struct.  An empty header yields
// the zero Info.
func Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{}
	}
	u := surfer.Parse(raw)

	info := Info{
		Browser:   u.Browser.Name.StringTrimPrefix(),
		Version:   versionToString(u.Browser.Version),
		OS:        osName(u.OS.Name),
		OSVersion: versionToString(u.OS.Version),
		IsBot:     u.IsBot(),
		Raw:       raw,
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	if info.IsBot {
		info.Device = "Bot"
	}
	return info
}

// BrowserLine is "Chrome 125" style: family plus major version.
func (i Info) BrowserLine() string {
	if i.Browser == "" || i.Browser == "Unknown" {
		return ""
	}
	major, _, _ := strings.Cut(i.Version, ".")
	return strings.TrimSpace(i.Browser + " " + major)
}

// PlatformLine is "macOS 14.4 (Desktop)" style.
func (i Info) PlatformLine() string {
	if i.OS == "" || i.OS == "Unknown" {
		return ""
	}
	s := strings.TrimSpace(i.OS + " " + i.OSVersion)
	if i.Device != "" {
		s += " (" + i.Device + ")"
	}
	return s
}

func osName(n surfer.OSName) string {
	if s := n.StringTrimPrefix(); s != "MacOSX" {
		return s
	}
	return "macOS"
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
