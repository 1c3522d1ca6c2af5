package filter

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/ca-srg/mailscope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	f := Normalize(nil)

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.PageSize)
	assert.Equal(t, "timestamp", f.SortField)
	assert.Equal(t, types.SortDesc, f.SortOrder)
	assert.False(t, f.HasClauses())
	assert.Nil(t, f.DateRange)
	assert.Nil(t, f.SourceIP)
}

func TestNormalizeClampsPaging(t *testing.T) {
	f := Normalize(map[string]string{"page": "0", "size": "500"})
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)

	inputs := []string{"", "-1", "0", "1", "7", "99", "100", "101", "1000000", "abc", "3.5", " 12 "}
	for _, page := range inputs {
		for _, size := range inputs {
			f := Normalize(map[string]string{"page": page, "size": size})
			require.GreaterOrEqual(t, f.Page, 1, "page=%q", page)
			require.GreaterOrEqual(t, f.PageSize, 1, "size=%q", size)
			require.LessOrEqual(t, f.PageSize, 100, "size=%q", size)
		}
	}
}

func TestNormalizePageSize(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 10},
		{"junk", 10},
		{"0", 1},
		{"-20", 1},
		{"25", 25},
		{"100", 100},
		{"101", 100},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePageSize(tt.raw))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	f := Normalize(map[string]string{"email": "  Alice@Example.COM "})
	assert.Equal(t, "alice@example.com", f.EmailSubstring)
	assert.True(t, f.HasClauses())

	f = Normalize(map[string]string{"email": "   "})
	assert.Equal(t, "", f.EmailSubstring)
	assert.False(t, f.HasClauses())
}

func TestNormalizeDomain(t *testing.T) {
	f := Normalize(map[string]string{"domain": " @Example.COM "})
	assert.Equal(t, "example.com", f.Domain)
	assert.Equal(t, "", f.EmailSubstring)
	assert.True(t, f.HasClauses())

	assert.Equal(t, "mail.example.jp", NormalizeDomain("*@mail.example.jp"))
	assert.Equal(t, "", NormalizeDomain(" @ "))

	f = Normalize(map[string]string{"domain": "*"})
	assert.False(t, f.HasClauses())
}

func TestNormalizeDates(t *testing.T) {
	f := Normalize(map[string]string{
		"startDate": "2024-01-15",
		"endDate":   "not-a-date",
	})
	require.NotNil(t, f.DateRange)
	require.NotNil(t, f.DateRange.From)
	assert.Nil(t, f.DateRange.To)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *f.DateRange.From)

	f = Normalize(map[string]string{"startDate": "garbage", "endDate": ""})
	assert.Nil(t, f.DateRange)
	assert.False(t, f.HasClauses())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-03-01T10:20:30Z", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2024-03-01T10:20:30+09:00", time.Date(2024, 3, 1, 1, 20, 30, 0, time.UTC)},
		{"2024-03-01T10:20:30.5Z", time.Date(2024, 3, 1, 10, 20, 30, 500000000, time.UTC)},
		{"2024-03-01T10:20:30", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2024-03-01T10:20", time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseDate(tt.raw)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("03/01/2024"))
	assert.Nil(t, ParseDate("2024-13-01"))
}

func TestClassifyIP(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind types.IPMatchKind
		want     string
	}{
		{"10.0.0.0/24", types.IPMatchCIDR, "10.0.0.0/24"},
		{"10.0.0.7/24", types.IPMatchCIDR, "10.0.0.0/24"},
		{"2001:db8::1/32", types.IPMatchCIDR, "2001:db8::/32"},
		{"10.0.0.*/24", types.IPMatchCIDR, "10.0.0.*/24"},
		{"10.0.0.*", types.IPMatchWildcard, "10.0.0.*"},
		{"*", types.IPMatchWildcard, "*"},
		{"10.0.0.5", types.IPMatchExact, "10.0.0.5"},
		{"not-an-ip", types.IPMatchExact, "not-an-ip"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			spec := ClassifyIP(tt.raw)
			assert.Equal(t, tt.wantKind, spec.Kind)
			assert.Equal(t, tt.want, spec.Value)
		})
	}
}

func TestClassifyIPDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		raw := "192.168." + strconv.Itoa(i) + ".1"
		assert.Equal(t, ClassifyIP(raw), ClassifyIP(raw))
		assert.Equal(t, types.IPMatchExact, ClassifyIP(raw).Kind)
		assert.Equal(t, types.IPMatchWildcard, ClassifyIP(raw+"*").Kind)
		assert.Equal(t, types.IPMatchCIDR, ClassifyIP(raw+"*/8").Kind)
	}
}

func TestNormalizeSort(t *testing.T) {
	assert.Equal(t, "network.source.ip", NormalizeSortField("sourceIp"))
	assert.Equal(t, "network.protocol", NormalizeSortField("protocol"))
	assert.Equal(t, "_score", NormalizeSortField("relevance"))
	assert.Equal(t, "timestamp", NormalizeSortField("message.body_text"))
	assert.Equal(t, "timestamp", NormalizeSortField(""))

	assert.Equal(t, types.SortAsc, NormalizeSortOrder("ASC"))
	assert.Equal(t, types.SortDesc, NormalizeSortOrder("desc"))
	assert.Equal(t, types.SortDesc, NormalizeSortOrder("sideways"))
}

func TestFromValues(t *testing.T) {
	values := url.Values{}
	values.Add("protocol", "SMTP")
	values.Add("protocol", "IMAP")
	values.Set("sourceIp", "10.1.0.0/16")
	values.Set("msisdn", " 819012345678 ")
	values.Set("page", "3")

	f := FromValues(values)
	assert.Equal(t, "SMTP", f.Protocol)
	require.NotNil(t, f.SourceIP)
	assert.Equal(t, types.IPMatchCIDR, f.SourceIP.Kind)
	assert.Equal(t, "819012345678", f.MSISDN)
	assert.Equal(t, 3, f.Page)
	assert.True(t, f.HasClauses())
}
