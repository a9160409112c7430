package notify

import (
	"encoding/json"
	"net/http"
)

// TriggerEvent is the client-side event htmx dispatches for toasts carried in HX-Trigger.
const TriggerEvent = "notify"

type triggerPayload struct {
	Toasts []Toast `json:"toasts"`
}

// Trigger encodes toasts as an HX-Trigger value: {"notify":{"toasts":[...]}}.
func Trigger(toasts ...Toast) (string, error) {
	raw, err := json.Marshal(map[string]triggerPayload{TriggerEvent: {Toasts: toasts}})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetTrigger attaches toasts to a response. It does nothing when toasts is empty.
func SetTrigger(h http.Header, toasts ...Toast) {
	if len(toasts) == 0 {
		return
	}
	if v, err := Trigger(toasts...); err == nil {
		h.Set("HX-Trigger", v)
	}
}
