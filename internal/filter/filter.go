// Package filter turns raw, loosely-typed search parameters into a validated
// types.FilterDescriptor. Nothing here returns an error: malformed values fall
// back to safe defaults.
package filter

import (
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ca-srg/mailscope/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultPage      = 1
	DefaultPageSize  = 10
	MaxPageSize      = 100
	DefaultSortField = "timestamp"
)

// Accepted parameter keys (case-sensitive)
const (
	ParamEmail     = "email"
	ParamDomain    = "domain"
	ParamStartDate = "startDate"
	ParamEndDate   = "endDate"
	ParamProtocol  = "protocol"
	ParamSourceIP  = "sourceIp"
	ParamMSISDN    = "msisdn"
	ParamPage      = "page"
	ParamSize      = "size"
	ParamSortField = "sortField"
	ParamSortOrder = "sortOrder"
)

// sortFields maps accepted sortField values to stored field names
var sortFields = map[string]string{
	"timestamp":              "timestamp",
	"_score":                 "_score",
	"relevance":              "_score",
	"protocol":               "network.protocol",
	"network.protocol":       "network.protocol",
	"sourceIp":               "network.source.ip",
	"network.source.ip":      "network.source.ip",
	"destinationIp":          "network.destination.ip",
	"network.destination.ip": "network.destination.ip",
	"from":                   "email.from",
	"email.from":             "email.from",
	"messageId":              "message.message_id",
	"message.message_id":     "message.message_id",
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var lower = cases.Lower(language.Und)

// Normalize builds a FilterDescriptor from raw parameters. Missing keys and
// empty values are treated as absent.
func Normalize(raw map[string]string) types.FilterDescriptor {
	get := func(key string) string {
		return strings.TrimSpace(raw[key])
	}

	f := types.FilterDescriptor{
		EmailSubstring: lower.String(get(ParamEmail)),
		Domain:         NormalizeDomain(get(ParamDomain)),
		Protocol:       get(ParamProtocol),
		MSISDN:         get(ParamMSISDN),
		Page:           NormalizePage(get(ParamPage)),
		PageSize:       NormalizePageSize(get(ParamSize)),
		SortField:      NormalizeSortField(get(ParamSortField)),
		SortOrder:      NormalizeSortOrder(get(ParamSortOrder)),
	}

	from := ParseDate(get(ParamStartDate))
	to := ParseDate(get(ParamEndDate))
	if from != nil || to != nil {
		f.DateRange = &types.DateRange{From: from, To: to}
	}

	if ip := get(ParamSourceIP); ip != "" {
		spec := ClassifyIP(ip)
		f.SourceIP = &spec
	}

	return f
}

// NormalizeDomain lower-cases a mail domain and drops a leading "@" and any
// wildcard characters, so "@Example.COM" and "example.com" are the same filter.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	d = strings.NewReplacer("*", "", "?", "").Replace(d)
	d = strings.TrimLeft(d, "@")
	return lower.String(strings.TrimSpace(d))
}

// FromValues flattens URL query values (first value wins) and normalizes them
func FromValues(values url.Values) types.FilterDescriptor {
	raw := make(map[string]string, len(values))
	for key := range values {
		raw[key] = values.Get(key)
	}
	return Normalize(raw)
}

// ClassifyIP picks the IP match strategy from the raw syntax: "/" means CIDR,
// otherwise "*" means wildcard, otherwise the value is an exact literal.
func ClassifyIP(raw string) types.IPMatchSpec {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.Contains(raw, "/"):
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			return types.IPMatchSpec{Kind: types.IPMatchCIDR, Value: prefix.Masked().String()}
		}
		return types.IPMatchSpec{Kind: types.IPMatchCIDR, Value: raw}
	case strings.Contains(raw, "*"):
		return types.IPMatchSpec{Kind: types.IPMatchWildcard, Value: raw}
	default:
		return types.IPMatchSpec{Kind: types.IPMatchExact, Value: raw}
	}
}

// ParseDate parses the accepted timestamp layouts in UTC; nil when unparseable
func ParseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// NormalizePage defaults to 1 and floors at 1
func NormalizePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return DefaultPage
	}
	return page
}

// NormalizePageSize defaults to 10 and clamps into [1,100]
func NormalizePageSize(raw string) int {
	size, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultPageSize
	}
	if size < 1 {
		return 1
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// NormalizeSortField resolves aliases; unknown fields fall back to timestamp
func NormalizeSortField(raw string) string {
	if field, ok := sortFields[raw]; ok {
		return field
	}
	return DefaultSortField
}

// NormalizeSortOrder accepts asc/desc in any case; default desc
func NormalizeSortOrder(raw string) types.SortOrder {
	if strings.EqualFold(raw, string(types.SortAsc)) {
		return types.SortAsc
	}
	return types.SortDesc
}
