package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"realtime_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// MessageWriter the part of *kafka.Writer the sink uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventSink publish chat events to kafka, keyed by chat id so one
// conversation stays on one partition
type KafkaEventSink struct {
	writer MessageWriter
}

// NewKafkaEventSink create KafkaEventSink on an existing writer
func NewKafkaEventSink(writer MessageWriter) *KafkaEventSink {
	return &KafkaEventSink{writer: writer}
}

// Publish encode the event and hand it to the writer
func (k *KafkaEventSink) Publish(ctx context.Context, chatID string, event domain.WSResponse) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Action, err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(chatID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	})
}

// Close flush and close the writer
func (k *KafkaEventSink) Close() error {
	return k.writer.Close()
}
