package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/pizzeria-backend/pkg/kafka"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/registry"
)

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

// pubSubTransport publishes to Google Pub/Sub topics, reusing one publisher per topic.
type pubSubTransport struct {
	client     pubSubClient
	factory    publisherFactory
	publishers map[string]publisher
}

func newPubSubTransport(client pubSubClient, factory publisherFactory) *pubSubTransport {
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(client.Publisher(topic))
		}
	}
	return &pubSubTransport{client: client, factory: factory, publishers: map[string]publisher{}}
}

func (t *pubSubTransport) Name() string { return "pubsub" }

func (t *pubSubTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx)
}

// Send is only called from the single publisher loop, so the publisher cache is unguarded.
func (t *pubSubTransport) Send(ctx context.Context, msg message) error {
	pub, ok := t.publishers[msg.Topic]
	if !ok {
		pub = t.factory(msg.Topic)
		if pub == nil {
			return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", msg.Topic))
		}
		t.publishers[msg.Topic] = pub
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", msg.Topic))
	}
	_, err := result.Get(ctx)
	return err
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

type kafkaProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Ping(ctx context.Context) error
}

// kafkaTransport writes to Kafka topics named like the Pub/Sub topics. Message
// attributes become record headers.
type kafkaTransport struct {
	producer kafkaProducer
}

func newKafkaTransport(producer kafkaProducer) *kafkaTransport {
	return &kafkaTransport{producer: producer}
}

func (t *kafkaTransport) Name() string { return "kafka" }

func (t *kafkaTransport) Ping(ctx context.Context) error {
	return t.producer.Ping(ctx)
}

func (t *kafkaTransport) Send(ctx context.Context, msg message) error {
	return t.producer.Publish(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Data,
		Headers: msg.Attributes,
	})
}
