// bus.go
package bus

import (
	"context"
	"sync"

	"pulsecode-go/errcode"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path. String and int tokens are the
// common cases; any comparable value works.
type Token = any

// Topic is a sequence of tokens. The string tokens "+" (one level) and "#"
// (zero or more trailing levels) act as wildcards in subscription patterns.
type Topic []Token

// T builds a topic from tokens.
func T(tokens ...Token) Topic { return Topic(tokens) }

func isPlus(t Token) bool { return t == Token("+") }
func isHash(t Token) bool { return t == Token("#") }

// Equal reports whether two topics are token-for-token identical.
func Equal(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// NewMessage is a convenience constructor.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic // pattern, may contain wildcards
	ch    chan *Message
	bus   *Bus
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie nodes
// -----------------------------------------------------------------------------

// subNode stores subscription patterns; wildcard tokens are ordinary keys.
type subNode struct {
	children map[Token]*subNode
	subs     []*Subscription
}

// retNode stores retained messages under their concrete topics.
type retNode struct {
	children map[Token]*retNode
	msg      *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu      sync.Mutex
	subRoot *subNode
	retRoot *retNode
	qLen    int
	replySeq int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		subRoot: &subNode{},
		retRoot: &retNode{},
		qLen:    queueLen,
	}
}

// addSubscription inserts a subscription pattern into the trie and delivers
// any retained messages it matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subRoot
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[Token]*subNode)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &subNode{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	collectRetained(b.retRoot, topic, &retained)
	for _, m := range retained {
		deliver(sub, m)
	}
}

// Publish delivers a message to all subscribers whose pattern matches its
// topic, and stores/clears the retained copy when requested.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var subs []*Subscription
	matchSubs(b.subRoot, msg.Topic, &subs)
	for _, sub := range subs {
		deliver(sub, msg)
	}

	if msg.Retained {
		b.storeRetained(msg)
	}
}

// deliver does a non-blocking send, dropping the oldest queued message when
// the subscriber queue is full.
func deliver(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// matchSubs walks the pattern trie against a concrete topic.
func matchSubs(n *subNode, topic Topic, out *[]*Subscription) {
	if n == nil {
		return
	}
	// "#" matches the remainder, including zero levels.
	if h, ok := n.children[Token("#")]; ok {
		*out = append(*out, h.subs...)
	}
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if c, ok := n.children[topic[0]]; ok && !isPlus(topic[0]) && !isHash(topic[0]) {
		matchSubs(c, topic[1:], out)
	}
	if c, ok := n.children[Token("+")]; ok {
		matchSubs(c, topic[1:], out)
	}
}

// collectRetained walks the retained trie with a (possibly wildcarded) pattern.
func collectRetained(n *retNode, pattern Topic, out *[]*Message) {
	if n == nil {
		return
	}
	if len(pattern) == 0 {
		if n.msg != nil {
			*out = append(*out, n.msg)
		}
		return
	}
	tok := pattern[0]
	switch {
	case isHash(tok):
		retainedSubtree(n, out)
	case isPlus(tok):
		for _, c := range n.children {
			collectRetained(c, pattern[1:], out)
		}
	default:
		if c, ok := n.children[tok]; ok {
			collectRetained(c, pattern[1:], out)
		}
	}
}

func retainedSubtree(n *retNode, out *[]*Message) {
	if n.msg != nil {
		*out = append(*out, n.msg)
	}
	for _, c := range n.children {
		retainedSubtree(c, out)
	}
}

// storeRetained stores msg under its concrete topic; a nil payload clears.
func (b *Bus) storeRetained(msg *Message) {
	n := b.retRoot
	var stack []*retNode
	for _, tok := range msg.Topic {
		if n.children == nil {
			if msg.Payload == nil {
				return // nothing to clear
			}
			n.children = make(map[Token]*retNode)
		}
		child, ok := n.children[tok]
		if !ok {
			if msg.Payload == nil {
				return
			}
			child = &retNode{}
			n.children[tok] = child
		}
		stack = append(stack, n)
		n = child
	}

	if msg.Payload == nil {
		n.msg = nil
		// Prune empty nodes.
		for i := len(msg.Topic) - 1; i >= 0; i-- {
			parent := stack[i]
			key := msg.Topic[i]
			child := parent.children[key]
			if child.msg == nil && len(child.children) == 0 {
				delete(parent.children, key)
			} else {
				break
			}
		}
		return
	}
	n.msg = msg
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subRoot
	var stack []*subNode
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

func (b *Bus) nextReplyTopic(connID string) Topic {
	b.mu.Lock()
	b.replySeq++
	seq := b.replySeq
	b.mu.Unlock()
	return Topic{"_reply", connID, seq}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

// NewMessage is a convenience constructor mirroring Bus.NewMessage.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		bus:   c.bus,
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Reply publishes a response to a request message's ReplyTo topic.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// RequestWait publishes a request and waits for a single reply or ctx expiry.
// The request's ReplyTo is assigned here and left set on return.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	req.ReplyTo = c.bus.nextReplyTopic(c.id)
	sub := c.Subscribe(req.ReplyTo)
	defer c.Unsubscribe(sub)

	c.bus.Publish(req)

	select {
	case reply := <-sub.ch:
		if reply == nil {
			return nil, errcode.Error
		}
		return reply, nil
	case <-ctx.Done():
		return nil, errcode.Timeout
	}
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}
