package systemconfig

import "time"

// Config is the branding and locale configuration of the installation.
// There is exactly one row.
type Config struct {
	AppName            string    `json:"appName"`
	LogoURL            string    `json:"logoUrl"`
	PrimaryColor       string    `json:"primaryColor"`
	SecondaryColor     string    `json:"secondaryColor"`
	PrimaryTextColor   string    `json:"primaryTextColor"`
	SecondaryTextColor string    `json:"secondaryTextColor"`
	BorderRadius       string    `json:"borderRadius"`
	DefaultLocale      string    `json:"defaultLocale"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Defaults returns the configuration created on first read.
func Defaults() Config {
	return Config{
		AppName:            "DocuFlow",
		PrimaryColor:       "#4f46e5",
		SecondaryColor:     "#7c3aed",
		PrimaryTextColor:   "#111827",
		SecondaryTextColor: "#4b5563",
		BorderRadius:       "0.75rem",
		DefaultLocale:      "es",
	}
}

// Locales accepted for DefaultLocale.
var Locales = []string{"es", "en", "pt"}
