// Package device infers a coarse device category from a User-Agent string.
package device

import (
	"strings"

	"github.com/BradenHooton/loginhistory/internal/models"
)

// signature maps a lowercase User-Agent fragment to a device type
type signature struct {
	fragment   string
	deviceType string
}

// signatures are checked in order and the first match wins. An iPad UA that also says
// "Macintosh" must stay "Apple iPad", so the order is part of the contract.
var signatures = []signature{
	{"ipad", "Apple iPad"},
	{"iphone", "Apple iPhone"},
	{"macintosh", "Apple Mac"},
	{"android", "Android"},
	{"win", "Windows"},
}

// Classifier infers device types from User-Agent strings
type Classifier struct{}

// NewClassifier creates a new Classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the device type for userAgent, or "Unknown"
func (c *Classifier) Classify(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, sig := range signatures {
		if strings.Contains(ua, sig.fragment) {
			return sig.deviceType
		}
	}
	return models.DeviceUnknown
}
