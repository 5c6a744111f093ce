package mqtt

// Publisher sends payloads to a message broker. Kind selects the QoS class
// configured for the message ("trip", "driver", "movement" or "rollback").
type Publisher interface {
	Publish(topic, kind string, payload []byte) error
}

// Subscriber delivers broker messages for a topic to handler.
type Subscriber interface {
	Subscribe(topic, kind string, handler func(topic string, payload []byte)) error
}

// Broker is a client that both publishes and subscribes.
type Broker interface {
	Publisher
	Subscriber
}
