package mq

import (
	"encoding/json"
	"errors"
	"time"
)

// Attribute keys set on every published message.
const (
	AttrContentType = "content-type"
	AttrKind        = "kind"
)

// KindExportRequested identifies ExportRequested payloads.
const KindExportRequested = "export.requested"

// ExportRequested asks the worker to render a user's transactions to CSV.
type ExportRequested struct {
	ExportID    string    `json:"exportId"`
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Encode returns the JSON payload and attributes for publishing.
func (e ExportRequested) Encode() ([]byte, map[string]string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, nil, err
	}
	return data, map[string]string{
		AttrContentType: "application/json",
		AttrKind:        KindExportRequested,
	}, nil
}

// DecodeExportRequested parses msg, rejecting payloads without both ids.
func DecodeExportRequested(msg Message) (ExportRequested, error) {
	if kind := msg.Attributes[AttrKind]; kind != "" && kind != KindExportRequested {
		return ExportRequested{}, errors.New("unexpected message kind " + kind)
	}
	var e ExportRequested
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		return ExportRequested{}, err
	}
	if e.ExportID == "" || e.UserID == "" {
		return ExportRequested{}, errors.New("export message is missing ids")
	}
	return e, nil
}
