package model

type Notification struct {
	ID        ID     `json:"id"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	Timestamp string `json:"timestamp,omitempty"`
}
