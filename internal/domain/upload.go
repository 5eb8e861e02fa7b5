package domain

// UploadHeader precedes every file sent to the sink. The file itself follows
// as a single binary WebSocket message of exactly Size bytes.
type UploadHeader struct {
	Session string `json:"session"`
	Name    string `json:"name"`
	Size    int    `json:"size"`
}

// UploadAck is the sink's reply to one upload.
type UploadAck struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
