// Package pubsub implements a simple subject/observer pubsub framework,
// used to notify watchers of network map rebuilds, parameter changes, and
// node registry events.
package pubsub

import (
	"reflect"
	"sync"

	"github.com/eapache/channels"
)

// Subscription is a handle to a subscription to a Broker.
type Subscription struct {
	broker *Broker
	ch     channels.Channel
}

// Unwrap wraps the subscription's underlying channel with a typed Go
// channel, copying each broadcast value across via a background goroutine.
// typedCh's element type must match (or be assignable from) the type
// passed to Broadcast.
func (s *Subscription) Unwrap(typedCh interface{}) {
	toChVal := reflect.ValueOf(typedCh)

	go func() {
		outCh := s.ch.Out()
		for {
			v, ok := <-outCh
			if !ok {
				return
			}
			toChVal.Send(reflect.ValueOf(v))
		}
	}()
}

// Close terminates the subscription.
func (s *Subscription) Close() {
	s.broker.unsubscribe(s)
}

// Broker coordinates a set of Subscriptions, broadcasting each published
// value to every current subscriber.
type Broker struct {
	sync.Mutex

	subscribers    map[*Subscription]bool
	lastOnSubscribe bool
	lastValue      interface{}
	haveLastValue  bool

	subscribeCallback func(channels.Channel)
}

// NewBroker creates a new Broker. If lastOnSubscribe is true, each new
// subscriber immediately receives the most recently broadcast value, if
// any.
func NewBroker(lastOnSubscribe bool) *Broker {
	return &Broker{
		subscribers:     make(map[*Subscription]bool),
		lastOnSubscribe: lastOnSubscribe,
	}
}

// NewBrokerEx creates a new Broker that invokes callback with the
// underlying channel of each new subscription, primarily so that callers
// can prime the channel with an initial value without racing Broadcast.
func NewBrokerEx(callback func(channels.Channel)) *Broker {
	b := NewBroker(false)
	b.subscribeCallback = callback
	return b
}

// Subscribe creates a new Subscription backed by an unbounded buffered
// channel.
func (b *Broker) Subscribe() *Subscription {
	return b.SubscribeBuffered(int64(channels.Infinity))
}

// SubscribeBuffered creates a new Subscription backed by a channel with
// the given buffer size. If bufferSize is channels.Infinity, the
// subscription channel is unbounded; otherwise new values overwrite the
// oldest buffered value once full.
func (b *Broker) SubscribeBuffered(bufferSize int64) *Subscription {
	return b.SubscribeEx(bufferSize, nil)
}

// SubscribeEx behaves like SubscribeBuffered, additionally invoking
// callback (if non-nil) with the newly created channel before it is
// exposed to broadcasts, so that the caller may prime it.
func (b *Broker) SubscribeEx(bufferSize int64, callback func(channels.Channel)) *Subscription {
	var ch channels.Channel
	if bufferSize == int64(channels.Infinity) {
		ch = channels.NewInfiniteChannel()
	} else {
		ch = channels.NewRingChannel(channels.BufferCap(bufferSize))
	}

	sub := &Subscription{ch: ch}

	b.Lock()
	defer b.Unlock()

	sub.broker = b
	b.subscribers[sub] = true

	if callback != nil {
		callback(ch)
	} else if b.subscribeCallback != nil {
		b.subscribeCallback(ch)
	}

	if b.lastOnSubscribe && b.haveLastValue {
		ch.In() <- b.lastValue
	}

	return sub
}

// Broadcast delivers v to every current subscriber.
func (b *Broker) Broadcast(v interface{}) {
	b.Lock()
	defer b.Unlock()

	for sub := range b.subscribers {
		sub.ch.In() <- v
	}

	if b.lastOnSubscribe {
		b.lastValue = v
		b.haveLastValue = true
	}
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.Lock()
	defer b.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	sub.ch.Close()
}
