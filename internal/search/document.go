package search

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// sourceDocument is the typed shape of a stored email record. Every nested
// section is optional; defaults are applied once, in the projector.
type sourceDocument struct {
	Timestamp   flexString         `json:"timestamp"`
	Email       *emailSection      `json:"email"`
	Message     *messageSection    `json:"message"`
	Network     *networkSection    `json:"network"`
	Attachments []attachmentRecord `json:"attachments"`
	Correlation *correlationRecord `json:"correlation"`
}

type emailSection struct {
	From stringList `json:"from"`
	To   stringList `json:"to"`
	Cc   stringList `json:"cc"`
	Bcc  stringList `json:"bcc"`
}

type messageSection struct {
	MessageID   flexString `json:"message_id"`
	Subject     flexString `json:"subject"`
	ContentType flexString `json:"content_type"`
	BodyText    flexString `json:"body_text"`
	BodyHTML    flexString `json:"body_html"`
}

type networkSection struct {
	Protocol    flexString      `json:"protocol"`
	Source      *endpointRecord `json:"source"`
	Destination *endpointRecord `json:"destination"`
}

type endpointRecord struct {
	IP        flexString `json:"ip"`
	Port      flexString `json:"port"`
	IsPrivate *bool      `json:"is_private"`
	PublicIP  flexString `json:"public_ip"`
}

type attachmentRecord struct {
	FileName flexString `json:"file_name"`
	MimeType flexString `json:"mime_type"`
	FileSize *int64     `json:"file_size"`
	FileHash flexString `json:"file_hash"`
}

type correlationRecord struct {
	CGNAT *struct {
		Matched *bool `json:"matched"`
	} `json:"cgnat"`
	Radius *struct {
		SessionFound *bool     `json:"session_found"`
		MSISDN       flexString `json:"msisdn"`
	} `json:"radius"`
}

// stringList accepts a JSON array of strings, a single scalar or null.
// Objects decode as nil. It never fails, so one odd field cannot stop the
// decoder before the sections that follow it.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*l = nil
		return nil
	}

	switch data[0] {
	case 'n', '{':
		*l = nil
	case '[':
		var raw []flexString
		if err := json.Unmarshal(data, &raw); err != nil {
			*l = nil
			return nil
		}
		out := make(stringList, 0, len(raw))
		for _, s := range raw {
			if s != "" {
				out = append(out, string(s))
			}
		}
		*l = out
	default:
		var s flexString
		_ = s.UnmarshalJSON(data)
		if s == "" {
			*l = nil
			return nil
		}
		*l = stringList{string(s)}
	}
	return nil
}

// flexString accepts a JSON string, number or boolean. Null, objects, arrays
// and anything unreadable decode as empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if json.Unmarshal(data, &v) == nil {
			*s = flexString(v)
		}
	case 't', 'f':
		var v bool
		if json.Unmarshal(data, &v) == nil {
			*s = flexString(strconv.FormatBool(v))
		}
	case 'n', '{', '[':
	default:
		var v json.Number
		if json.Unmarshal(data, &v) == nil {
			*s = flexString(v.String())
		}
	}
	return nil
}

func decodeSource(raw json.RawMessage) (sourceDocument, error) {
	var doc sourceDocument
	if len(raw) == 0 {
		return doc, nil
	}
	err := json.Unmarshal(raw, &doc)
	return doc, err
}
