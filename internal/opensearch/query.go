package opensearch

import (
	"time"

	"github.com/ca-srg/mailscope/internal/types"
)

// Stored field names
const (
	FieldEmailFrom          = "email.from"
	FieldEmailTo            = "email.to"
	FieldEmailCc            = "email.cc"
	FieldEmailBcc           = "email.bcc"
	FieldSubject            = "message.subject"
	FieldBodyText           = "message.body_text"
	FieldMessageID          = "message.message_id"
	FieldProtocol           = "network.protocol"
	FieldSourceIP           = "network.source.ip"
	FieldSourceIPPattern    = "network.source.ip.keyword"
	FieldDestinationIP      = "network.destination.ip"
	FieldTimestamp          = "timestamp"
	FieldCorrelation        = "correlation"
	FieldCGNATMatched       = "correlation.cgnat.matched"
	FieldRadiusSessionFound = "correlation.radius.session_found"
	FieldMSISDN             = "correlation.radius.msisdn"
)

const (
	HighlightPreTag  = "<mark>"
	HighlightPostTag = "</mark>"
)

// emailFields are the address fields matched by the email and domain filters
var emailFields = []string{FieldEmailFrom, FieldEmailTo, FieldEmailCc, FieldEmailBcc}

// SourceFields lists the only _source fields a search hit needs for projection
var SourceFields = []string{
	FieldEmailFrom,
	FieldEmailTo,
	FieldEmailCc,
	FieldEmailBcc,
	FieldSubject,
	FieldMessageID,
	FieldProtocol,
	FieldSourceIP,
	FieldDestinationIP,
	FieldTimestamp,
	FieldCorrelation,
}

// QueryOptions tunes body construction beyond the filter itself
type QueryOptions struct {
	// TiebreakField, when set, is appended as a secondary ascending sort key
	TiebreakField string
}

// BuildQuery maps a filter descriptor onto a bool query. Address matching
// goes into must; range and term conditions go into filter so they do not
// affect scoring. With no clauses the result is match_all.
func BuildQuery(f types.FilterDescriptor) map[string]interface{} {
	var must []map[string]interface{}
	var filter []map[string]interface{}

	if f.EmailSubstring != "" {
		must = append(must, buildAddressClause("*"+f.EmailSubstring+"*"))
	}

	if f.Domain != "" {
		must = append(must, buildAddressClause("*@"+f.Domain))
	}

	if clause := buildDateRangeClause(f.DateRange); clause != nil {
		filter = append(filter, clause)
	}

	if f.Protocol != "" {
		filter = append(filter, termClause(FieldProtocol, f.Protocol))
	}

	if f.SourceIP != nil {
		filter = append(filter, buildIPClause(*f.SourceIP))
	}

	if f.MSISDN != "" {
		filter = append(filter, termClause(FieldMSISDN, f.MSISDN))
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]interface{}{
		"bool": boolQuery,
	}
}

// BuildSearchBody assembles the full _search body for one page of results
func BuildSearchBody(f types.FilterDescriptor, opts QueryOptions) map[string]interface{} {
	page := max(f.Page, 1)
	size := max(f.PageSize, 1)

	return map[string]interface{}{
		"query":            BuildQuery(f),
		"from":             (page - 1) * size,
		"size":             size,
		"sort":             buildSort(f, opts.TiebreakField),
		"highlight":        buildHighlight(),
		"_source":          SourceFields,
		"track_total_hits": true,
	}
}

// buildAddressClause matches pattern case-insensitively against any address field
func buildAddressClause(pattern string) map[string]interface{} {
	should := make([]map[string]interface{}, 0, len(emailFields))
	for _, field := range emailFields {
		should = append(should, map[string]interface{}{
			"wildcard": map[string]interface{}{
				field: map[string]interface{}{
					"value":            pattern,
					"case_insensitive": true,
				},
			},
		})
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

func buildDateRangeClause(r *types.DateRange) map[string]interface{} {
	if r.IsEmpty() {
		return nil
	}

	bounds := map[string]interface{}{}
	if r.From != nil {
		bounds["gte"] = r.From.UTC().Format(time.RFC3339Nano)
	}
	if r.To != nil {
		bounds["lte"] = r.To.UTC().Format(time.RFC3339Nano)
	}

	return map[string]interface{}{
		"range": map[string]interface{}{
			FieldTimestamp: bounds,
		},
	}
}

func buildIPClause(spec types.IPMatchSpec) map[string]interface{} {
	switch spec.Kind {
	case types.IPMatchCIDR:
		// ip-typed term queries accept CIDR notation natively
		return termClause(FieldSourceIP, spec.Value)
	case types.IPMatchWildcard:
		return map[string]interface{}{
			"wildcard": map[string]interface{}{
				FieldSourceIPPattern: map[string]interface{}{
					"value": spec.Value,
				},
			},
		}
	default:
		return termClause(FieldSourceIP, spec.Value)
	}
}

func termClause(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			field: value,
		},
	}
}

func buildSort(f types.FilterDescriptor, tiebreak string) []map[string]interface{} {
	field := f.SortField
	if field == "" {
		field = FieldTimestamp
	}
	order := f.SortOrder
	if order == "" {
		order = types.SortDesc
	}

	sort := []map[string]interface{}{
		{field: map[string]interface{}{"order": string(order)}},
	}
	if tiebreak != "" && tiebreak != field {
		sort = append(sort, map[string]interface{}{
			tiebreak: map[string]interface{}{"order": string(types.SortAsc)},
		})
	}
	return sort
}

func buildHighlight() map[string]interface{} {
	return map[string]interface{}{
		"pre_tags":  []string{HighlightPreTag},
		"post_tags": []string{HighlightPostTag},
		"fields": map[string]interface{}{
			FieldSubject: map[string]interface{}{
				"number_of_fragments": 1,
			},
			FieldBodyText: map[string]interface{}{
				"number_of_fragments": 2,
				"fragment_size":       150,
			},
		},
	}
}
