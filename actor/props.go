package actor

// Producer constructs a new Actor instance. A fresh Actor is produced once
// per Spawn call and is owned exclusively by the process loop that follows.
type Producer func() Actor

// Props is the configuration object used to create an actor.
type Props struct {
	producer Producer
}

// NewProps wraps a Producer in a Props. The producer must not be nil.
func NewProps(producer Producer) *Props {
	if producer == nil {
		panic("actor: producer cannot be nil")
	}
	return &Props{producer: producer}
}

// Produce creates a new actor instance using the configured producer.
func (p *Props) Produce() Actor {
	return p.producer()
}
