package models

// AdminRequest is the body of POST /api/v1/admin. Either Command holds a full
// slash command, or Action names one with its arguments in the other fields.
type AdminRequest struct {
	Command  string `json:"command"`
	Action   string `json:"action"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason"`
	Duration string `json:"duration"`
	Word     string `json:"word"`
}

type AdminResponse struct {
	Replies []string `json:"replies"`
}

type HistoryResponse struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type RoomsResponse struct {
	Rooms []Room `json:"rooms"`
}
