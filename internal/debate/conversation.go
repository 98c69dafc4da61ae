package debate

import "time"

// DefaultScrollThreshold is how many rows from the bottom still count as "at the bottom".
const DefaultScrollThreshold = 3

const replayStagger = 50 * time.Millisecond

// ScrollState remembers whether the reader was near the bottom of the conversation.
type ScrollState struct {
	Threshold  int
	NearBottom bool
}

func NewScrollState(threshold int) ScrollState {
	if threshold < 0 {
		threshold = 0
	}
	return ScrollState{Threshold: threshold, NearBottom: true}
}

// Observe recomputes NearBottom from the pane geometry.
func (s *ScrollState) Observe(scrollHeight, clientHeight, scrollTop int) {
	s.NearBottom = scrollHeight-clientHeight-scrollTop <= s.Threshold
}

// Entry is one rendered message in the conversation.
type Entry struct {
	Speaker   string
	Role      Role
	Content   string
	MessageID string
	Thinking  bool
	Streaming bool
	// Delay is the stagger offset of entries added in one batch.
	Delay     time.Duration
	Timestamp time.Time
}

// Conversation is the append-only message list plus its scroll policy.
type Conversation struct {
	entries         []*Entry
	scroll          ScrollState
	scrollRequested bool
	topic           *TopicState
	indicators      *Indicators
	now             func() time.Time
}

func NewConversation(topic *TopicState, indicators *Indicators, threshold int) *Conversation {
	return &Conversation{
		topic:      topic,
		indicators: indicators,
		scroll:     NewScrollState(threshold),
		now:        time.Now,
	}
}

func (c *Conversation) Clear() {
	c.entries = nil
}

// CreateEntry builds an entry for speaker without adding it to the list.
func (c *Conversation) CreateEntry(speaker, initialText, messageID string) *Entry {
	return &Entry{
		Speaker:   speaker,
		Role:      Classify(speaker, *c.topic),
		Content:   initialText,
		MessageID: messageID,
		Timestamp: c.now(),
	}
}

// Append adds e and reports whether the pane should follow it to the bottom.
func (c *Conversation) Append(e *Entry) bool {
	near := c.scroll.NearBottom
	c.entries = append(c.entries, e)
	if c.indicators != nil {
		c.indicators.Clear(e.Role)
	}
	if near {
		c.scrollRequested = true
	}
	return near
}

func (c *Conversation) AppendMessage(msg Message) bool {
	return c.Append(c.CreateEntry(msg.Speaker, msg.Message, ""))
}

// Replay replaces the list with msgs and pins the pane to the bottom.
func (c *Conversation) Replay(msgs []Message) {
	c.Clear()
	for i, msg := range msgs {
		e := c.CreateEntry(msg.Speaker, msg.Message, "")
		e.Delay = time.Duration(i) * replayStagger
		c.Append(e)
	}
	c.scroll.NearBottom = true
	c.scrollRequested = true
}

// Touch requests a follow scroll after in-place growth of an entry.
func (c *Conversation) Touch() {
	if c.scroll.NearBottom {
		c.scrollRequested = true
	}
}

// Observe feeds user scrolling into the scroll policy.
func (c *Conversation) Observe(scrollHeight, clientHeight, scrollTop int) {
	c.scroll.Observe(scrollHeight, clientHeight, scrollTop)
}

func (c *Conversation) NearBottom() bool {
	return c.scroll.NearBottom
}

// TakeScrollRequest returns and resets the pending follow-scroll flag.
func (c *Conversation) TakeScrollRequest() bool {
	requested := c.scrollRequested
	c.scrollRequested = false
	return requested
}

func (c *Conversation) Entries() []*Entry {
	return c.entries
}

func (c *Conversation) Len() int {
	return len(c.entries)
}
