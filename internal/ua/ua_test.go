package ua

import (
	"testing"

	"github.com/yanizio/formstep/internal/form"
)

func TestParseDevice(t *testing.T) {
	cases := map[string]form.Device{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1": form.DeviceMobile,
		"Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1":          form.DeviceTablet,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36":                  form.DeviceDesktop,
		"": form.DeviceDesktop,
	}
	for raw, want := range cases {
		if got := Parse(raw).Device; got != want {
			t.Errorf("Parse(%.30q).Device = %s, want %s", raw, got, want)
		}
	}
}

func TestParseBrowserAndBot(t *testing.T) {
	chrome := Parse("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	if chrome.Browser != "Chrome" || chrome.OS != "MacOSX" || chrome.IsBot {
		t.Fatalf("chrome = %+v", chrome)
	}

	bot := Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	if !bot.IsBot {
		t.Fatalf("googlebot not flagged: %+v", bot)
	}
}
