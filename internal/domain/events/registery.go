package events

import (
	"fmt"
	"reflect"
)

var eventRegistry = make(map[EventType]reflect.Type)

func RegisterEvent(eventType EventType, event interface{}) {
	eventRegistry[eventType] = reflect.TypeOf(event)
}

// CreateEvent returns a pointer to a zero value of the registered event type.
func CreateEvent(eventType EventType) (interface{}, error) {
	t, ok := eventRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	return reflect.New(t).Interface(), nil
}

func init() {
	RegisterEvent(EventTypeBatchRequested, BatchRequestedEvent{})
	RegisterEvent(EventTypeBatchCompleted, BatchCompletedEvent{})
	RegisterEvent(EventTypeBatchFailed, BatchFailedEvent{})
}
