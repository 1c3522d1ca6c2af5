package mcpserver

import (
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DualTransportHandler serves streamable HTTP and SSE clients on the same path
type DualTransportHandler struct {
	streamable *mcp.StreamableHTTPHandler
	sse        *mcp.SSEHandler
}

// NewDualTransportHandler creates a new DualTransportHandler.
func NewDualTransportHandler(getServer func(*http.Request) *mcp.Server) *DualTransportHandler {
	return &DualTransportHandler{
		streamable: mcp.NewStreamableHTTPHandler(getServer, nil),
		sse:        mcp.NewSSEHandler(getServer, nil),
	}
}

// ServeHTTP sends SSE session traffic (a POST carrying sessionid, or a GET
// asking for an event stream) to the SSE handler and everything else to the
// streamable handler.
func (h *DualTransportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isSSERequest(r) {
		h.sse.ServeHTTP(w, r)
		return
	}
	h.streamable.ServeHTTP(w, r)
}

func isSSERequest(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost:
		return r.URL.Query().Has("sessionid")
	case http.MethodGet:
		if r.Header.Get("Mcp-Session-Id") != "" {
			return false
		}
		for _, accept := range strings.Split(strings.Join(r.Header.Values("Accept"), ","), ",") {
			if strings.HasPrefix(strings.TrimSpace(accept), "text/event-stream") {
				return true
			}
		}
	}
	return false
}
