package debate

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

type parseState int

const (
	stateNormal parseState = iota
	stateInThink
)

// thinkParser strips <think>...</think> spans from a chunked stream. A chunk
// ending in a prefix of the marker it is waiting for holds that prefix back
// until the next chunk decides what it is.
type thinkParser struct {
	state parseState
	held  string
}

// Feed consumes chunk and returns the text that is visible outside think spans.
func (p *thinkParser) Feed(chunk string) string {
	buf := p.held + chunk
	p.held = ""
	var out strings.Builder
	for buf != "" {
		switch p.state {
		case stateInThink:
			if i := strings.Index(buf, thinkClose); i >= 0 {
				p.state = stateNormal
				buf = buf[i+len(thinkClose):]
				continue
			}
			p.held = partialSuffix(buf, thinkClose)
			buf = ""
		default:
			if j := strings.Index(buf, thinkOpen); j >= 0 {
				out.WriteString(buf[:j])
				p.state = stateInThink
				buf = buf[j+len(thinkOpen):]
				continue
			}
			p.held = partialSuffix(buf, thinkOpen)
			out.WriteString(buf[:len(buf)-len(p.held)])
			buf = ""
		}
	}
	return out.String()
}

// Flush ends the stream. A held-back partial opening marker was literal text;
// anything inside an unclosed span is dropped.
func (p *thinkParser) Flush() string {
	held := p.held
	p.held = ""
	if p.state == stateNormal {
		return held
	}
	return ""
}

func (p *thinkParser) thinking() bool {
	return p.state == stateInThink
}

// partialSuffix returns the longest proper prefix of marker that s ends with.
func partialSuffix(s, marker string) string {
	for n := min(len(s), len(marker)-1); n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return s[len(s)-n:]
		}
	}
	return ""
}

// InFlight is a streamed message that has not seen its done chunk yet.
type InFlight struct {
	entry     *Entry
	parser    thinkParser
	displayed strings.Builder
}

func (f *InFlight) DisplayedText() string {
	return f.displayed.String()
}

func (f *InFlight) Thinking() bool {
	return f.parser.thinking()
}

// Renderer attributes stream chunks to in-flight messages by message id.
type Renderer struct {
	view     *Conversation
	inflight map[string]*InFlight
}

func NewRenderer(view *Conversation) *Renderer {
	return &Renderer{view: view, inflight: map[string]*InFlight{}}
}

// Handle applies one chunk. It returns the finalized text when the chunk is
// the last one of its message.
func (r *Renderer) Handle(chunk StreamChunk) (string, bool) {
	f, ok := r.inflight[chunk.MessageID]
	if !ok {
		e := r.view.CreateEntry(chunk.Speaker, "", chunk.MessageID)
		e.Streaming = true
		r.view.Append(e)
		f = &InFlight{entry: e}
		r.inflight[chunk.MessageID] = f
	}

	f.displayed.WriteString(f.parser.Feed(chunk.Message))
	f.entry.Content = f.displayed.String()
	f.entry.Thinking = f.parser.thinking()
	r.view.Touch()

	if !chunk.Done {
		return "", false
	}
	f.displayed.WriteString(f.parser.Flush())
	f.entry.Thinking = false
	f.entry.Streaming = false
	f.entry.Content = f.displayed.String()
	delete(r.inflight, chunk.MessageID)
	return f.entry.Content, true
}

// Lookup returns the in-flight record for id, if any.
func (r *Renderer) Lookup(id string) (*InFlight, bool) {
	f, ok := r.inflight[id]
	return f, ok
}

// Drop forgets every in-flight record. Chunks that arrive later for a dropped
// id start a fresh entry in the current view.
func (r *Renderer) Drop() {
	clear(r.inflight)
}

func (r *Renderer) Active() int {
	return len(r.inflight)
}
