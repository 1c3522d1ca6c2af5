package types

import "time"

// SortOrder is the direction of the single search sort key
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DateRange is an inclusive time window; either side may be absent.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IsEmpty reports whether neither bound is set
func (r *DateRange) IsEmpty() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// IPMatchKind tags the variant held by an IPMatchSpec.
type IPMatchKind int

const (
	IPMatchExact IPMatchKind = iota + 1
	IPMatchCIDR
	IPMatchWildcard
)

func (k IPMatchKind) String() string {
	switch k {
	case IPMatchExact:
		return "exact"
	case IPMatchCIDR:
		return "cidr"
	case IPMatchWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// IPMatchSpec is the source-IP filter, classified once at normalization time.
type IPMatchSpec struct {
	Kind  IPMatchKind
	Value string
}

// FilterDescriptor is the validated, typed form of the raw search parameters.
// Empty strings and nil pointers mean "absent".
type FilterDescriptor struct {
	EmailSubstring string
	Domain         string
	DateRange      *DateRange
	Protocol       string
	SourceIP       *IPMatchSpec
	MSISDN         string

	Page      int
	PageSize  int
	SortField string
	SortOrder SortOrder
}

// HasClauses reports whether the filter contributes any query condition.
// Paging and sorting never count.
func (f *FilterDescriptor) HasClauses() bool {
	return f.EmailSubstring != "" ||
		f.Domain != "" ||
		!f.DateRange.IsEmpty() ||
		f.Protocol != "" ||
		f.SourceIP != nil ||
		f.MSISDN != ""
}

// Correlation carries the CGNAT / RADIUS enrichment flags of a record
type Correlation struct {
	CGNATMatched       bool `json:"cgnatMatched"`
	RadiusSessionFound bool `json:"radiusSessionFound"`
}

// EmailSearchResult is the stable per-hit contract returned to callers
type EmailSearchResult struct {
	ID             string              `json:"id"`
	From           string              `json:"from"`
	To             []string            `json:"to"`
	Subject        string              `json:"subject"`
	SourceIP       string              `json:"sourceIp"`
	DestinationIP  string              `json:"destinationIp"`
	Timestamp      string              `json:"timestamp"`
	Protocol       string              `json:"protocol"`
	MessageID      string              `json:"messageId"`
	Correlation    Correlation         `json:"correlation"`
	Highlight      map[string][]string `json:"highlight"`
	RelevanceScore *float64            `json:"relevanceScore"`
}

// SearchResponse is the produced contract of the search endpoint
type SearchResponse struct {
	Results    []EmailSearchResult `json:"results"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Size       int                 `json:"size"`
	TotalPages int                 `json:"totalPages"`
}

// Bucket is one category of a terms aggregation
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// TrafficBucket is one interval of the volume histogram
type TrafficBucket struct {
	BucketStart string `json:"bucketStart"`
	Count       int64  `json:"count"`
}

// StatsResponse is the produced contract of the dashboard stats endpoint
type StatsResponse struct {
	Protocols []Bucket        `json:"protocols"`
	CGNAT     []Bucket        `json:"cgnat"`
	Radius    []Bucket        `json:"radius"`
	Traffic   []TrafficBucket `json:"traffic"`
}
