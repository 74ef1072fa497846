package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ThingsBoard device API topics.
const (
	TopicTelemetry      = "v1/devices/me/telemetry"
	TopicAttributes     = "v1/devices/me/attributes"
	TopicResponse       = "v1/devices/me/attributes/response/+"
	TopicResponsePrefix = "v1/devices/me/attributes/response/"
	TopicRequest        = "v1/devices/me/attributes/request/1"
)

// SharedKeys lists the shared attributes the device requests.
const SharedKeys = "kodetoken,up,down,press1,press2,press3,stop,setmax,row1,row2,row3,row4,newssid,newpass"

// Attributes is the cached value of every shared attribute the device
// understands.
type Attributes struct {
	KodeToken string `json:"kodetoken"`
	Up        int    `json:"up"`
	Down      int    `json:"down"`
	Press1    int    `json:"press1"`
	Press2    int    `json:"press2"`
	Press3    int    `json:"press3"`
	Stop      int    `json:"stop"`
	SetMax    int    `json:"setmax"`
	Row1      int    `json:"row1"`
	Row2      int    `json:"row2"`
	Row3      int    `json:"row3"`
	Row4      int    `json:"row4"`
	NewSSID   string `json:"newssid"`
	NewPass   string `json:"newpass"`
}

// RequestPayload is the body published on TopicRequest.
func RequestPayload() []byte {
	return []byte(fmt.Sprintf(`{"sharedKeys":"%s"}`, SharedKeys))
}

// IsAttributeTopic reports whether a message on topic carries shared
// attributes, either as a push or as a response to a request.
func IsAttributeTopic(topic string) bool {
	return topic == TopicAttributes || strings.HasPrefix(topic, TopicResponsePrefix)
}

// Apply merges a shared attribute document into a. The document may wrap the
// attributes in a "shared" object. Keys with the wrong JSON type are ignored.
// It reports whether any cached value changed.
func (a *Attributes) Apply(payload []byte) (bool, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		return false, fmt.Errorf("failed to parse attributes: %w", err)
	}

	obj := root
	if shared, ok := root["shared"]; ok && !isNull(shared) {
		obj = nil
		if err := json.Unmarshal(shared, &obj); err != nil {
			return false, nil
		}
	}

	changed := false
	setString := func(key string, dst *string) {
		if v, ok := stringValue(obj[key]); ok && v != *dst {
			*dst = v
			changed = true
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := intValue(obj[key]); ok && v != *dst {
			*dst = v
			changed = true
		}
	}

	setString("kodetoken", &a.KodeToken)
	setInt("up", &a.Up)
	setInt("down", &a.Down)
	setInt("press1", &a.Press1)
	setInt("press2", &a.Press2)
	setInt("press3", &a.Press3)
	setInt("stop", &a.Stop)
	setInt("setmax", &a.SetMax)
	setInt("row1", &a.Row1)
	setInt("row2", &a.Row2)
	setInt("row3", &a.Row3)
	setInt("row4", &a.Row4)
	setString("newssid", &a.NewSSID)
	setString("newpass", &a.NewPass)

	return changed, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringValue(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func intValue(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}
