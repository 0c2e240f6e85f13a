package monitor

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaDepthFetcher считает приблизительную глубину топика через Kafka ListOffsets API:
// сумма (last offset - first offset) по всем партициям. Для DLQ, который никто
// не консьюмит, это и есть количество ожидающих сообщений (приблизительное -
// между запросами метаданных и offset-ов топик может измениться).
type KafkaDepthFetcher struct {
	client *kafka.Client
	topic  string
}

// NewKafkaDepthFetcher создаёт новый fetcher глубины топика
func NewKafkaDepthFetcher(brokers []string, topic string) *KafkaDepthFetcher {
	return &KafkaDepthFetcher{
		client: &kafka.Client{
			Addr: kafka.TCP(brokers...),
		},
		topic: topic,
	}
}

// Depth возвращает приблизительное количество сообщений в топике
func (f *KafkaDepthFetcher) Depth(ctx context.Context) (int64, error) {
	meta, err := f.client.Metadata(ctx, &kafka.MetadataRequest{
		Topics: []string{f.topic},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch topic metadata: %w", err)
	}

	requests := make([]kafka.OffsetRequest, 0)
	for _, t := range meta.Topics {
		if t.Name != f.topic {
			continue
		}
		// Топик ещё не создан - глубина ноль
		if t.Error != nil {
			return 0, nil
		}
		for _, p := range t.Partitions {
			requests = append(requests,
				kafka.FirstOffsetOf(p.ID),
				kafka.LastOffsetOf(p.ID),
			)
		}
	}

	if len(requests) == 0 {
		return 0, nil
	}

	resp, err := f.client.ListOffsets(ctx, &kafka.ListOffsetsRequest{
		Topics: map[string][]kafka.OffsetRequest{
			f.topic: requests,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list offsets: %w", err)
	}

	var depth int64
	for _, partitions := range resp.Topics {
		for _, p := range partitions {
			if p.Error != nil {
				return 0, fmt.Errorf("failed to list offsets for partition %d: %w", p.Partition, p.Error)
			}
			depth += p.LastOffset - p.FirstOffset
		}
	}

	return depth, nil
}
