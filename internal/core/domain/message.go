package domain

import "time"

// Broadcast addresses a message to every user.
const Broadcast = "All"

// Message is a team communication note. Messages are append-only.
type Message struct {
	ID        int       `json:"msg_id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
}
