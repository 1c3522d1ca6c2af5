package search

import (
	"log"

	"github.com/ca-srg/mailscope/internal/opensearch"
	"github.com/ca-srg/mailscope/internal/types"
)

// DefaultSubject is reported for messages without a subject
const DefaultSubject = "(No Subject)"

// Projector maps raw hits onto the response contracts
type Projector struct {
	logger *log.Logger
}

func NewProjector(logger *log.Logger) *Projector {
	if logger == nil {
		logger = log.Default()
	}
	return &Projector{logger: logger}
}

// Project maps one hit. Absent or malformed fields fall back to defaults;
// highlight fragments pass through unescaped.
func (p *Projector) Project(hit opensearch.Hit) types.EmailSearchResult {
	result, err := project(hit)
	if err != nil {
		p.logger.Printf("Document %s has a malformed source: %v", hit.ID, err)
	}
	return result
}

// project returns the decode error alongside the result; type mismatches
// still leave the well-formed fields decoded.
func project(hit opensearch.Hit) (types.EmailSearchResult, error) {
	doc, err := decodeSource(hit.Source)

	result := types.EmailSearchResult{
		ID:          hit.ID,
		To:          []string{},
		Subject:     DefaultSubject,
		Timestamp:   string(doc.Timestamp),
		Correlation: correlationOf(doc.Correlation),
		Highlight:   hit.Highlight,
	}

	if hit.Score != nil {
		score := *hit.Score
		result.RelevanceScore = &score
	}

	if doc.Email != nil {
		if len(doc.Email.From) > 0 {
			result.From = doc.Email.From[0]
		}
		if doc.Email.To != nil {
			result.To = []string(doc.Email.To)
		}
	}

	if doc.Message != nil {
		if doc.Message.Subject != "" {
			result.Subject = string(doc.Message.Subject)
		}
		result.MessageID = string(doc.Message.MessageID)
	}

	if doc.Network != nil {
		result.Protocol = string(doc.Network.Protocol)
		if doc.Network.Source != nil {
			result.SourceIP = string(doc.Network.Source.IP)
		}
		if doc.Network.Destination != nil {
			result.DestinationIP = string(doc.Network.Destination.IP)
		}
	}

	return result, err
}

// ProjectMany maps hits in the order the store returned them. Malformed
// sources are reported in one log line per call.
func (p *Projector) ProjectMany(hits []opensearch.Hit) []types.EmailSearchResult {
	results := make([]types.EmailSearchResult, 0, len(hits))
	var malformed int
	var firstID string
	var firstErr error
	for _, hit := range hits {
		result, err := project(hit)
		if err != nil {
			if malformed == 0 {
				firstID, firstErr = hit.ID, err
			}
			malformed++
		}
		results = append(results, result)
	}
	if malformed > 0 {
		p.logger.Printf("%d of %d documents have a malformed source (first %s: %v)", malformed, len(hits), firstID, firstErr)
	}
	return results
}

// ProjectDetail maps a fetched document onto the full detail view
func (p *Projector) ProjectDetail(doc *opensearch.Document) types.EmailDetail {
	src, err := decodeSource(doc.Source)
	if err != nil {
		p.logger.Printf("Document %s has a malformed source: %v", doc.ID, err)
	}

	detail := types.EmailDetail{
		ID:          doc.ID,
		Timestamp:   string(src.Timestamp),
		To:          []string{},
		Cc:          []string{},
		Bcc:         []string{},
		Subject:     DefaultSubject,
		Attachments: []types.Attachment{},
		Correlation: types.CorrelationDetail{Correlation: correlationOf(src.Correlation)},
	}

	if src.Email != nil {
		if len(src.Email.From) > 0 {
			detail.From = src.Email.From[0]
		}
		detail.To = nonNil(src.Email.To)
		detail.Cc = nonNil(src.Email.Cc)
		detail.Bcc = nonNil(src.Email.Bcc)
	}

	if src.Message != nil {
		if src.Message.Subject != "" {
			detail.Subject = string(src.Message.Subject)
		}
		detail.MessageID = string(src.Message.MessageID)
		detail.ContentType = string(src.Message.ContentType)
		detail.BodyText = string(src.Message.BodyText)
		detail.BodyHTML = string(src.Message.BodyHTML)
	}

	if src.Network != nil {
		detail.Protocol = string(src.Network.Protocol)
		detail.Source = endpointOf(src.Network.Source)
		detail.Destination = endpointOf(src.Network.Destination)
	}

	for _, a := range src.Attachments {
		att := types.Attachment{
			FileName: string(a.FileName),
			MimeType: string(a.MimeType),
			FileHash: string(a.FileHash),
		}
		if a.FileSize != nil {
			att.FileSize = *a.FileSize
		}
		detail.Attachments = append(detail.Attachments, att)
	}

	if src.Correlation != nil && src.Correlation.Radius != nil {
		detail.Correlation.MSISDN = string(src.Correlation.Radius.MSISDN)
	}

	return detail
}

// correlationOf reports absent enrichment as unmatched
func correlationOf(c *correlationRecord) types.Correlation {
	var out types.Correlation
	if c == nil {
		return out
	}
	if c.CGNAT != nil && c.CGNAT.Matched != nil {
		out.CGNATMatched = *c.CGNAT.Matched
	}
	if c.Radius != nil && c.Radius.SessionFound != nil {
		out.RadiusSessionFound = *c.Radius.SessionFound
	}
	return out
}

func endpointOf(e *endpointRecord) types.Endpoint {
	if e == nil {
		return types.Endpoint{}
	}
	out := types.Endpoint{
		IP:       string(e.IP),
		Port:     string(e.Port),
		PublicIP: string(e.PublicIP),
	}
	if e.IsPrivate != nil {
		out.IsPrivate = *e.IsPrivate
	}
	return out
}

func nonNil(l stringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
