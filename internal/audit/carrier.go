package audit

import "github.com/segmentio/kafka-go"

// headerCarrier lets the otel propagator read and write trace context on a
// kafka message's headers, so consumer spans join the producing trace.
type headerCarrier struct {
	headers *[]kafka.Header
}

func carrierFor(msg *kafka.Message) headerCarrier {
	return headerCarrier{headers: &msg.Headers}
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces any existing header with the same key; propagators may
// inject the same key more than once.
func (c headerCarrier) Set(key, value string) {
	kept := (*c.headers)[:0]
	for _, h := range *c.headers {
		if h.Key != key {
			kept = append(kept, h)
		}
	}
	*c.headers = append(kept, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
