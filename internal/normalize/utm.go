package normalize

import "net/url"

// utmParams is the whitelist of campaign and ad-click identifiers extracted
// from landing URLs. Anything else in the query string is ignored.
var utmParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"gclid",
	"fbclid",
	"msclkid",
	"ttclid",
	"wbraid",
	"dclid",
	"twclid",
	"li_fat_id",
}

// ExtractUTM pulls the whitelisted parameters out of a URL's query string.
// Returns nil when the URL has none of them, never an empty map.
func ExtractUTM(rawURL string) map[string]string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return nil
	}

	query := parsed.Query()
	result := make(map[string]string)
	for _, param := range utmParams {
		if v := query.Get(param); v != "" {
			result[param] = v
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
