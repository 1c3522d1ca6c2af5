package types

// Endpoint is a network endpoint recorded on a captured message
type Endpoint struct {
	IP        string `json:"ip"`
	Port      string `json:"port"`
	IsPrivate bool   `json:"isPrivate"`
	PublicIP  string `json:"publicIp,omitempty"`
}

// Attachment is the metadata of one captured attachment
type Attachment struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	FileHash string `json:"fileHash"`
}

// CorrelationDetail extends Correlation with the RADIUS subscriber identity
type CorrelationDetail struct {
	Correlation
	MSISDN string `json:"msisdn,omitempty"`
}

// EmailDetail is the full view of a single captured message
type EmailDetail struct {
	ID          string            `json:"id"`
	Timestamp   string            `json:"timestamp"`
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Cc          []string          `json:"cc"`
	Bcc         []string          `json:"bcc"`
	Subject     string            `json:"subject"`
	MessageID   string            `json:"messageId"`
	ContentType string            `json:"contentType"`
	BodyText    string            `json:"bodyText"`
	BodyHTML    string            `json:"bodyHtml,omitempty"`
	Protocol    string            `json:"protocol"`
	Source      Endpoint          `json:"source"`
	Destination Endpoint          `json:"destination"`
	Attachments []Attachment      `json:"attachments"`
	Correlation CorrelationDetail `json:"correlation"`
}
