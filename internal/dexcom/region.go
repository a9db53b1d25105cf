package dexcom

import (
	"sort"
	"strings"
)

// Region codes
const (
	RegionUS  = "us"
	RegionOUS = "ous"
	RegionEU  = "eu"
	RegionJP  = "jp"
)

const (
	appIDUS = "d89443d2-327c-4a6f-89e5-496bbb0317db"
	appIDJP = "d8665ade-9673-4e27-9ff6-92db4ce13d13"
)

// RegionConfig is the Share endpoint for a region
type RegionConfig struct {
	Code          string `json:"code"`
	BaseURL       string `json:"baseUrl"`
	ApplicationID string `json:"applicationId"`
}

// ous and eu are served by the same host
var regions = map[string]RegionConfig{
	RegionUS: {
		Code:          RegionUS,
		BaseURL:       "https://share2.dexcom.com/ShareWebServices/Services",
		ApplicationID: appIDUS,
	},
	RegionOUS: {
		Code:          RegionOUS,
		BaseURL:       "https://shareous1.dexcom.com/ShareWebServices/Services",
		ApplicationID: appIDUS,
	},
	RegionEU: {
		Code:          RegionEU,
		BaseURL:       "https://shareous1.dexcom.com/ShareWebServices/Services",
		ApplicationID: appIDUS,
	},
	RegionJP: {
		Code:          RegionJP,
		BaseURL:       "https://share.dexcom.jp/ShareWebServices/Services",
		ApplicationID: appIDJP,
	},
}

// ResolveRegion returns the endpoint configuration for a region code.
// Unknown codes report ok == false.
func ResolveRegion(code string) (RegionConfig, bool) {
	cfg, ok := regions[strings.ToLower(strings.TrimSpace(code))]
	return cfg, ok
}

// Regions returns all known region configurations sorted by code
func Regions() []RegionConfig {
	out := make([]RegionConfig, 0, len(regions))
	for _, cfg := range regions {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}
