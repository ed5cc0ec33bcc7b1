// internal/ua/ua.go
//
// User-Agent helpers.
//
// The public form page starts in the width preset that suits the visitor's
// device, skips draft writes for crawlers, and logs browser and OS with each
// stored response.  This wrapper keeps github.com/avct/uasurfer's enums out
// of the rest of the codebase.
package ua

import (
	surfer "github.com/avct/uasurfer"

	"github.com/yanizio/formstep/internal/form"
)

// Info is the slice of the parsed agent the app uses.
type Info struct {
	Browser string
	OS      string
	Device  form.Device
	IsBot   bool
}

// Parse reads a raw User-Agent header.  Phones and wearables map to the
// mobile preset, tablets to tablet, everything else to desktop.
func Parse(raw string) Info {
	u := surfer.Parse(raw)
	return Info{
		Browser: u.Browser.Name.StringTrimPrefix(),
		OS:      u.OS.Name.StringTrimPrefix(),
		Device:  deviceFor(u.DeviceType),
		IsBot:   u.IsBot(),
	}
}

func deviceFor(t surfer.DeviceType) form.Device {
	switch t {
	case surfer.DeviceTablet:
		return form.DeviceTablet
	case surfer.DevicePhone, surfer.DeviceWearable:
		return form.DeviceMobile
	default:
		return form.DeviceDesktop
	}
}
