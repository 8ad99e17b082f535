package udpsync

import (
	"strings"

	"github.com/minilabo/minilab-core/internal/io"
)

// Wire message discriminators, matched against the cmd/type field.
const (
	msgDiscover      = "discover"
	msgListInputs    = "list_inputs"
	msgDiscoverReply = "discover_reply"
	msgValue         = "value"
	msgChannelValue  = "channel_value"
	msgValues        = "values"
	msgSnapshot      = "snapshot"
)

// discoverRequest is the active-scan probe.
type discoverRequest struct {
	Cmd string `json:"cmd"`
	MAC string `json:"mac,omitempty"`
}

// discoverReply advertises a device and its locally-sourced inputs.
type discoverReply struct {
	Type     string                  `json:"type"`
	MAC      string                  `json:"mac"`
	Hostname string                  `json:"hostname"`
	IP       string                  `json:"ip"`
	RxPort   int                     `json:"rx_port"`
	TxPort   int                     `json:"tx_port"`
	Inputs   []io.ChannelDescription `json:"inputs"`
}

// heartbeat is the periodic liveness broadcast.
type heartbeat struct {
	TS  int64  `json:"ts"`
	Msg string `json:"msg"`
}

// textEqualFold reports whether a and b are both non-empty and equal
// under case folding.
func textEqualFold(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
