package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// BackupMessage carries one full export document. Consumers can write
// Document to FileName as-is.
type BackupMessage struct {
	FileName   string          `json:"fileName"`
	ExportedAt time.Time       `json:"exportedAt"`
	Revision   uint64          `json:"revision"`
	Document   json.RawMessage `json:"document"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewBackupMessage(fileName string, exportedAt time.Time, revision uint64, doc []byte) *BackupMessage {
	return &BackupMessage{
		FileName:   fileName,
		ExportedAt: exportedAt,
		Revision:   revision,
		Document:   json.RawMessage(doc),
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BackupMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BackupMessageFromJSON parses a message and checks it carries a document.
func BackupMessageFromJSON(data []byte) (*BackupMessage, error) {
	var msg BackupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.FileName == "" || len(msg.Document) == 0 {
		return nil, errors.New("backup message without file name or document")
	}
	return &msg, nil
}
