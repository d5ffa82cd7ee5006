package payload

// Server describes the host that produced the report. Nil fields are absent
// from the wire; an empty string is kept.
type Server struct {
	Extensible
	Host        *string
	Root        *string
	Branch      *string
	CodeVersion *string
}

func (s *Server) Normalize(f Fields) {
	s.Host = f.PopString("host")
	s.Root = f.PopString("root")
	s.Branch = f.PopString("branch")
	s.CodeVersion = f.PopString("code_version")
}

func (s *Server) Denormalize(w *FieldWriter) {
	w.PutString("host", s.Host)
	w.PutString("root", s.Root)
	w.PutString("branch", s.Branch)
	w.PutString("code_version", s.CodeVersion)
}

func (s *Server) MarshalJSON() ([]byte, error) {
	return MarshalRecord(s)
}

func (s *Server) UnmarshalJSON(data []byte) error {
	return UnmarshalRecord(data, s)
}

// Client carries client-side context. Only the javascript section is typed.
type Client struct {
	Extensible
	JavaScript map[string]any
}

func (c *Client) Normalize(f Fields) {
	c.JavaScript = f.PopMap("javascript")
}

func (c *Client) Denormalize(w *FieldWriter) {
	if c.JavaScript != nil {
		w.Put("javascript", c.JavaScript)
	}
}

func (c *Client) MarshalJSON() ([]byte, error) {
	return MarshalRecord(c)
}

func (c *Client) UnmarshalJSON(data []byte) error {
	return UnmarshalRecord(data, c)
}
