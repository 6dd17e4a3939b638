package observ

import "time"

// Span is a lightweight stand-in for a tracing span, built on the same
// structured-log idiom as Log rather than a dedicated tracing client;
// see DESIGN.md.
type Span struct {
	name      string
	start     time.Time
	attrs     map[string]any
}

// StartSpan opens a span under the given name, e.g.
// "app.dealer.updateInFlightTransfer". Nothing is logged until End.
func StartSpan(name string, attrs map[string]any) *Span {
	if attrs == nil {
		attrs = map[string]any{}
	}
	s := &Span{name: name, start: time.Now(), attrs: attrs}
	return s
}

// SetAttr records an attribute to be emitted when the span ends.
func (s *Span) SetAttr(key string, value any) {
	s.attrs[key] = value
}

// End logs the span's duration and accumulated attributes.
func (s *Span) End() {
	kv := make(map[string]any, len(s.attrs)+2)
	for k, v := range s.attrs {
		kv[k] = v
	}
	kv["span"] = s.name
	kv["duration_ms"] = time.Since(s.start).Milliseconds()
	Log("span_end", kv)
}
