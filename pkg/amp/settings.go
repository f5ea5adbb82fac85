package amp

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Default detection settings.
const (
	DefaultGetParameter = "amp-content"
	DefaultGetValue     = "amp"
)

// Settings controls how AMP requests are detected.
type Settings struct {
	// GetParameter is the query parameter that flags an AMP request.
	GetParameter string
	// GetValue is the value GetParameter must carry.
	GetValue string
	// Folder is the tag assigned to AMP requests.
	Folder Tag
	// DefaultTag is assigned to every other request.
	DefaultTag Tag
	// ActiveURLs restricts AMP detection to matching paths. Empty allows all.
	ActiveURLs []string

	active []*regexp.Regexp
}

// DefaultSettings returns the stock detection settings.
func DefaultSettings() Settings {
	return Settings{
		GetParameter: DefaultGetParameter,
		GetValue:     DefaultGetValue,
		Folder:       TagAMP,
		DefaultTag:   TagDefault,
	}
}

// Compile fills unset fields with defaults and compiles ActiveURLs.
func (s Settings) Compile() (Settings, error) {
	defaults := DefaultSettings()
	if strings.TrimSpace(s.GetParameter) == "" {
		s.GetParameter = defaults.GetParameter
	}
	if strings.TrimSpace(s.GetValue) == "" {
		s.GetValue = defaults.GetValue
	}
	if strings.TrimSpace(string(s.Folder)) == "" {
		s.Folder = defaults.Folder
	}
	if strings.TrimSpace(string(s.DefaultTag)) == "" {
		s.DefaultTag = defaults.DefaultTag
	}
	if s.Folder == s.DefaultTag {
		return Settings{}, fmt.Errorf("amp: folder and default tag must differ, both are %q", s.Folder)
	}

	s.active = make([]*regexp.Regexp, 0, len(s.ActiveURLs))
	for _, pattern := range s.ActiveURLs {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Settings{}, fmt.Errorf("amp: compile active url %q: %w", pattern, err)
		}
		s.active = append(s.active, re)
	}
	return s, nil
}

// Active reports whether AMP detection applies to path.
func (s Settings) Active(path string) bool {
	if len(s.active) == 0 {
		return true
	}
	for _, re := range s.active {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// DetectRequest returns Folder for AMP requests and DefaultTag otherwise.
func (s Settings) DetectRequest(r *http.Request) Tag {
	if r == nil || r.URL == nil {
		return s.DefaultTag
	}
	if !s.Active(r.URL.Path) {
		return s.DefaultTag
	}
	if r.URL.Query().Get(s.GetParameter) == s.GetValue {
		return s.Folder
	}
	return s.DefaultTag
}

// URL returns raw with the AMP query parameter set.
func (s Settings) URL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("amp: parse url %q: %w", raw, err)
	}
	query := u.Query()
	query.Set(s.GetParameter, s.GetValue)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
