package generation

import "encoding/json"

// Event types written to progress streams.
const (
	EventStatus = "status"
	EventImage  = "image"
	EventDone   = "done"
	EventError  = "error"
)

// Event is one line of a generation progress stream.
type Event struct {
	Type             string   `json:"type"`
	Message          string   `json:"message,omitempty"`
	Index            *int     `json:"index,omitempty"`
	UnitID           string   `json:"unitId,omitempty"`
	URL              string   `json:"url,omitempty"`
	Progress         int      `json:"progress,omitempty"`
	Total            int      `json:"total,omitempty"`
	ID               string   `json:"id,omitempty"`
	Status           string   `json:"status,omitempty"`
	GeneratedURLs    []string `json:"generatedUrls,omitempty"`
	RemainingCredits *int     `json:"remainingCredits,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// MarshalJSON always writes generatedUrls on done events, even when no image
// was produced.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	if e.Type != EventDone {
		return json.Marshal(plain(e))
	}
	urls := e.GeneratedURLs
	if urls == nil {
		urls = []string{}
	}
	return json.Marshal(struct {
		plain
		GeneratedURLs []string `json:"generatedUrls"`
	}{plain(e), urls})
}

func StatusEvent(message string) Event {
	return Event{Type: EventStatus, Message: message}
}

func ImageEvent(index int, unitID, url string, progress, total int) Event {
	return Event{Type: EventImage, Index: &index, UnitID: unitID, URL: url, Progress: progress, Total: total}
}

func DoneEvent(jobID, status string, urls []string, remaining int) Event {
	if urls == nil {
		urls = []string{}
	}
	return Event{Type: EventDone, ID: jobID, Status: status, GeneratedURLs: urls, RemainingCredits: &remaining}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Error: message}
}
