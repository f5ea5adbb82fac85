package render

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-amptools/pkg/amp"
)

var (
	sanitizePolicyOnce sync.Once
	sanitizePolicy     *bluemonday.Policy
)

func registerDefaultFilters(settings amp.Settings) error {
	defaults := []struct {
		name string
		fn   pongo2.FilterFunction
	}{
		{"trim", filterTrim},
		{"lowerfirst", filterLowerFirst},
		{"sanitize", filterSanitize},
	}
	for _, f := range defaults {
		if pongo2.FilterExists(f.name) {
			continue
		}
		if err := pongo2.RegisterFilter(f.name, f.fn); err != nil {
			return err
		}
	}

	// amp_url depends on the engine's settings; the latest engine wins.
	ampURL := filterAMPURL(settings)
	if pongo2.FilterExists("amp_url") {
		return pongo2.ReplaceFilter("amp_url", ampURL)
	}
	return pongo2.RegisterFilter("amp_url", ampURL)
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	start := strings.IndexFunc(t, func(r rune) bool {
		return !strings.ContainsRune(" \t\n\r", r)
	})
	if start < 0 {
		return pongo2.AsValue(t), nil
	}
	first, size := utf8.DecodeRuneInString(t[start:])
	return pongo2.AsValue(t[:start] + strings.ToLower(string(first)) + t[start+size:]), nil
}

// filterSanitize strips markup that is not allowed in user generated content.
func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	sanitizePolicyOnce.Do(func() {
		sanitizePolicy = bluemonday.UGCPolicy()
	})
	return pongo2.AsSafeValue(sanitizePolicy.Sanitize(in.String())), nil
}

func filterAMPURL(settings amp.Settings) pongo2.FilterFunction {
	return func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		out, err := settings.URL(in.String())
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:amp_url", OrigError: err}
		}
		return pongo2.AsValue(out), nil
	}
}
