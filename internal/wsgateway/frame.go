package wsgateway

import (
	"encoding/json"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// inboundFrame is the single envelope shape for every client->server
// message. Unrecognized fields for a given Type are simply left zero.
type inboundFrame struct {
	Type         string          `json:"type"`
	ResourceType string          `json:"resourceType,omitempty"`
	Namespace    string          `json:"namespace,omitempty"`
	Timestamp    json.RawMessage `json:"timestamp,omitempty"`
}

const (
	inTypeSubscribe   = "subscribe"
	inTypeUnsubscribe = "unsubscribe"
	inTypePing        = "ping"
	inTypePong        = "pong"
)

// outboundFrame is the single envelope shape for every server->client
// message; the omitempty tags mean each concrete frame only carries
// the fields its type actually uses.
type outboundFrame struct {
	Type         string              `json:"type"`
	Status       string              `json:"status,omitempty"`
	EventType    core.WatchEventType `json:"eventType,omitempty"`
	ResourceType core.Kind           `json:"resourceType,omitempty"`
	Resource     *core.Record        `json:"resource,omitempty"`
	Count        int                 `json:"count,omitempty"`
	Namespace    string              `json:"namespace,omitempty"`
	Message      string              `json:"message,omitempty"`
	Timestamp    json.RawMessage     `json:"timestamp,omitempty"`
}

const (
	outTypeConnection           = "connection"
	outTypeResource             = "resource"
	outTypeInitialStateComplete = "initial_state_complete"
	outTypeSubscribed           = "subscribed"
	outTypeUnsubscribed         = "unsubscribed"
	outTypePing                 = "ping"
	outTypePong                 = "pong"
	outTypeError                = "error"
	outTypeWarning              = "warning"
)

func connectedFrame() outboundFrame {
	return outboundFrame{Type: outTypeConnection, Status: "connected"}
}

func resourceFrame(eventType core.WatchEventType, kind core.Kind, rec *core.Record) outboundFrame {
	return outboundFrame{Type: outTypeResource, EventType: eventType, ResourceType: kind, Resource: rec}
}

func initialStateCompleteFrame(kind core.Kind, count int, namespace string) outboundFrame {
	return outboundFrame{Type: outTypeInitialStateComplete, ResourceType: kind, Count: count, Namespace: namespaceOrAll(namespace)}
}

func subscribedFrame(kind core.Kind, namespace string) outboundFrame {
	return outboundFrame{Type: outTypeSubscribed, ResourceType: kind, Namespace: namespaceOrAll(namespace)}
}

func unsubscribedFrame(kind core.Kind, namespace string) outboundFrame {
	return outboundFrame{Type: outTypeUnsubscribed, ResourceType: kind, Namespace: namespaceOrAll(namespace)}
}

func pingFrame() outboundFrame { return outboundFrame{Type: outTypePing} }

func pongFrame(timestamp json.RawMessage) outboundFrame {
	return outboundFrame{Type: outTypePong, Timestamp: timestamp}
}

func errorFrame(message string) outboundFrame {
	return outboundFrame{Type: outTypeError, Message: message}
}

func warningFrame(message string) outboundFrame {
	return outboundFrame{Type: outTypeWarning, Message: message}
}

func namespaceOrAll(ns string) string {
	if ns == "" {
		return "all"
	}
	return ns
}

// subKey identifies a subscription by its (resourceType,
// namespace-or-all) pair, the key an unsubscribe request is matched
// against.
func subKey(kind core.Kind, namespace string) string {
	return string(kind) + "|" + namespaceOrAll(namespace)
}
