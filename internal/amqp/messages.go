package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"threepl/internal/core"
)

// ReportMessage asks downstream consumers to produce a report for one
// month. It carries the rounded metrics so consumers never touch the ledger.
type ReportMessage struct {
	ID          string              `json:"id"`
	Variant     string              `json:"variant"`
	MonthIndex  int                 `json:"month_index"`
	Revision    uint64              `json:"revision"`
	Metrics     core.DerivedMetrics `json:"metrics"`
	RequestedAt time.Time           `json:"requested_at"`
}

func NewReportMessage(variant string, monthIndex int, revision uint64, m core.DerivedMetrics) *ReportMessage {
	return &ReportMessage{
		ID:          uuid.NewString(),
		Variant:     variant,
		MonthIndex:  monthIndex,
		Revision:    revision,
		Metrics:     m.Rounded(),
		RequestedAt: time.Now().UTC(),
	}
}

func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportMessageFromJSON decodes a delivery body. Messages without an ID are
// rejected.
func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, errors.New("report message has no valid id")
	}
	return &msg, nil
}
