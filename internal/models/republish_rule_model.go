package models

// RepublishRule mirrors a Nimble Streamer RTMP republishing rule. The rule
// lives on the streaming server; this is only its wire representation.
type RepublishRule struct {
	ID         string `json:"id,omitempty"`
	SrcApp     string `json:"src_app"`
	SrcStream  string `json:"src_stream"`
	DestAddr   string `json:"dest_addr"`
	DestPort   int    `json:"dest_port"`
	DestApp    string `json:"dest_app"`
	DestStream string `json:"dest_stream"`
}
