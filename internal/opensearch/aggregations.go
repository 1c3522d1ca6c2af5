package opensearch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ca-srg/mailscope/internal/types"
)

// Aggregation names used in dashboard requests and responses
const (
	AggProtocols       = "protocols"
	AggCGNAT           = "cgnat"
	AggRadius          = "radius"
	AggTrafficOverTime = "traffic_over_time"
)

const (
	DefaultWindowYears     = 5
	DefaultProtocolBuckets = 10
	trafficInterval        = "1d"
)

// AggregationOptions controls the dashboard aggregation request
type AggregationOptions struct {
	WindowYears     int
	ProtocolBuckets int
}

// BuildDashboardAggregations builds the stats request over one bounded window.
// A missing lower bound becomes now-<WindowYears>y and a missing upper bound
// becomes now, both resolved by the store.
func BuildDashboardAggregations(window *types.DateRange, opts AggregationOptions) map[string]interface{} {
	if opts.WindowYears <= 0 {
		opts.WindowYears = DefaultWindowYears
	}
	if opts.ProtocolBuckets <= 0 {
		opts.ProtocolBuckets = DefaultProtocolBuckets
	}

	lower := fmt.Sprintf("now-%dy", opts.WindowYears)
	upper := "now"
	if window != nil && window.From != nil {
		lower = window.From.UTC().Format(time.RFC3339)
	}
	if window != nil && window.To != nil {
		upper = window.To.UTC().Format(time.RFC3339)
	}

	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"range": map[string]interface{}{
				FieldTimestamp: map[string]interface{}{
					"gte": lower,
					"lte": upper,
				},
			},
		},
		"aggs": map[string]interface{}{
			AggProtocols: termsAgg(FieldProtocol, opts.ProtocolBuckets),
			AggCGNAT:     termsAgg(FieldCGNATMatched, 2),
			AggRadius:    termsAgg(FieldRadiusSessionFound, 2),
			AggTrafficOverTime: map[string]interface{}{
				"date_histogram": map[string]interface{}{
					"field":          FieldTimestamp,
					"fixed_interval": trafficInterval,
					"min_doc_count":  0,
					"extended_bounds": map[string]interface{}{
						"min": lower,
						"max": upper,
					},
				},
			},
		},
	}
}

func termsAgg(field string, size int) map[string]interface{} {
	return map[string]interface{}{
		"terms": map[string]interface{}{
			"field": field,
			"size":  size,
		},
	}
}

// rawBucket is a single bucket as the store returns it. Keys are strings for
// keyword terms, numbers for boolean terms and epoch millis for histograms.
type rawBucket struct {
	Key         json.RawMessage `json:"key"`
	KeyAsString string          `json:"key_as_string"`
	DocCount    int64           `json:"doc_count"`
}

type rawBucketAgg struct {
	Buckets []rawBucket `json:"buckets"`
}

// DashboardBuckets is the parsed form of a dashboard aggregation response
type DashboardBuckets struct {
	Protocols []types.Bucket
	CGNAT     []types.Bucket
	Radius    []types.Bucket
	Traffic   []types.TrafficBucket
}

// ParseDashboardAggregations reshapes the aggregation section of a response.
// Missing aggregations yield empty slices.
func ParseDashboardAggregations(raw json.RawMessage) (*DashboardBuckets, error) {
	out := &DashboardBuckets{
		Protocols: []types.Bucket{},
		CGNAT:     []types.Bucket{},
		Radius:    []types.Bucket{},
		Traffic:   []types.TrafficBucket{},
	}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}

	var aggs map[string]rawBucketAgg
	if err := json.Unmarshal(raw, &aggs); err != nil {
		return nil, NewSearchError(types.ErrorTypeResponse, fmt.Sprintf("failed to parse aggregations: %v", err))
	}

	out.Protocols = toBuckets(aggs[AggProtocols].Buckets)
	out.CGNAT = toBuckets(aggs[AggCGNAT].Buckets)
	out.Radius = toBuckets(aggs[AggRadius].Buckets)

	for _, b := range aggs[AggTrafficOverTime].Buckets {
		out.Traffic = append(out.Traffic, types.TrafficBucket{
			BucketStart: histogramKey(b),
			Count:       b.DocCount,
		})
	}

	return out, nil
}

func toBuckets(in []rawBucket) []types.Bucket {
	out := make([]types.Bucket, 0, len(in))
	for _, b := range in {
		out = append(out, types.Bucket{Key: bucketKey(b), Count: b.DocCount})
	}
	return out
}

func bucketKey(b rawBucket) string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	var s string
	if err := json.Unmarshal(b.Key, &s); err == nil {
		return s
	}
	return string(b.Key)
}

func histogramKey(b rawBucket) string {
	var millis int64
	if err := json.Unmarshal(b.Key, &millis); err == nil {
		return time.UnixMilli(millis).UTC().Format(time.RFC3339)
	}
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	return string(b.Key)
}
