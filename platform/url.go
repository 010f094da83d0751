package platform

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// Query parameters which only identify a share, campaign, or click. Dropping them makes two shares of the same page compare equal.
var trackingParams = map[string]bool{
	"__s":         true,
	"_ga":         true,
	"campaign_id": true,
	"ceid":        true,
	"emci":        true,
	"emdi":        true,
	"fbclid":      true,
	"gclid":       true,
	"igsh":        true,
	"igshid":      true,
	"mkclid":      true,
	"mkt_tok":     true,
	"msclkid":     true,
	"s":           true,
	"si":          true,
	"sessionid":   true,
	"sourceid":    true,
	"t":           true,
	"xpid":        true,
}

// whole families, eg utm_source, pk_kwd, mc_eid
var trackingPrefixes = []string{"utm_", "pk_", "mc_"}

const lossyFlags = purell.FlagsUsuallySafeGreedy | purell.FlagRemoveDirectoryIndex | purell.FlagRemoveFragment |
	purell.FlagRemoveDuplicateSlashes | purell.FlagRemoveWWW | purell.FlagSortQuery

func isTrackingParam(name string) bool {
	if trackingParams[name] {
		return true
	}
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Normalizes a link on any host for matching and de-duplication. The result may not load the same page; never hand it back to a browser.
func NormalizeLossyURL(raw string) string {
	clean, err := purell.NormalizeURLString(raw, lossyFlags)
	if err != nil {
		return raw
	}
	u, err := url.Parse(clean)
	if err != nil || u.RawQuery == "" {
		return clean
	}
	params := u.Query()
	for name := range params {
		if isTrackingParam(name) {
			params.Del(name)
		}
	}
	u.RawQuery = params.Encode()
	return u.String()
}
