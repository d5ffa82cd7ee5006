package payload

// Message is a free-text report body with arbitrary extra fields.
type Message struct {
	Extensible
	body string
}

// NewMessage returns a message with the given body. The body must not be
// blank.
func NewMessage(body string) (*Message, error) {
	if isBlank(body) {
		return nil, blank("body")
	}
	return &Message{body: body}, nil
}

func (m *Message) clone() *Message {
	return &Message{
		Extensible: Extensible{additional: m.Additional()},
		body:       m.body,
	}
}

// Body returns the message text.
func (m *Message) Body() string {
	return m.body
}

func (m *Message) Normalize(f Fields) {
	m.body = ""
	if s, ok := f["body"].(string); ok && !isBlank(s) {
		m.body = s
	}
	delete(f, "body")
}

func (m *Message) Denormalize(w *FieldWriter) {
	if m.body != "" {
		w.Put("body", m.body)
	}
}

func (m *Message) MarshalJSON() ([]byte, error) {
	return MarshalRecord(m)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	if err := UnmarshalRecord(data, m); err != nil {
		return err
	}
	if isBlank(m.body) {
		return blank("body")
	}
	return nil
}
