package model

import "time"

// RequestEvent is one API gateway request as stored by the analytics backends.
type RequestEvent struct {
	Timestamp  time.Time `json:"@timestamp"`
	APIName    string    `json:"api_name"`
	APIVersion string    `json:"api_version"`
	APICreator string    `json:"api_creator"`
	Platform   string    `json:"platform"`
	UserAgent  string    `json:"user_agent"`
	SourceFile string    `json:"source_file,omitempty"`
}
