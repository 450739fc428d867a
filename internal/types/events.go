package types

import "time"

// EventType identifies what happened to the portfolio or the intake session
type EventType string

const (
	EventItemAdded       EventType = "portfolio.item_added"
	EventItemRemoved     EventType = "portfolio.item_removed"
	EventItemDeleted     EventType = "portfolio.item_deleted"
	EventDeleteFailed    EventType = "portfolio.delete_failed"
	EventPortfolioSaved  EventType = "portfolio.saved"
	EventSaveFailed      EventType = "portfolio.save_failed"
	EventPortfolioLoaded EventType = "portfolio.loaded"
	EventPortfolioEmpty  EventType = "portfolio.empty"
	EventLoadFailed      EventType = "portfolio.load_failed"
	EventUploadCompleted EventType = "intake.upload_completed"
	EventUploadFailed    EventType = "intake.upload_failed"
)

// Event is a user-facing notification
type Event struct {
	Type      EventType   `json:"type"`
	Level     Level       `json:"level"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ItemEventData identifies the item an event refers to
type ItemEventData struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title"`
}

// PortfolioEventData describes the portfolio after a save or load
type PortfolioEventData struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, level Level, message string, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Level:     level,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
