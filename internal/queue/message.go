package queue

import (
	"encoding/json"
	"fmt"
)

const messageVersion = 1

// Message is the body of a wakeup published to SQS. It carries no job data;
// consumers always claim work from the jobs table.
type Message struct {
	Channel string `json:"channel"`
	SentAt  string `json:"sentAt"`
	Version int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Channel == "" {
		return Message{}, fmt.Errorf("message has no channel")
	}
	return msg, nil
}
