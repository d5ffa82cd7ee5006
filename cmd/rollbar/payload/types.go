package payload

// Frame represents a single frame in a stack trace
type Frame struct {
	Filename string       `json:"filename"`
	Line     int          `json:"lineno,omitempty"`
	Column   int          `json:"colno,omitempty"`
	Method   string       `json:"method,omitempty"`
	Code     string       `json:"code,omitempty"`
	Context  *CodeContext `json:"context,omitempty"`
}

// CodeContext holds the source lines around a frame
type CodeContext struct {
	Pre  []string `json:"pre,omitempty"`
	Post []string `json:"post,omitempty"`
}

// Exception contains error details
type Exception struct {
	Class       string `json:"class"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

// Trace is the wire form of one error: its frames plus exception details
type Trace struct {
	Frames    []Frame   `json:"frames"`
	Exception Exception `json:"exception"`
}

// Person identifies the user affected by the error
type Person struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// NewPerson returns a person with the given id. The id must not be blank.
func NewPerson(id string) (*Person, error) {
	if isBlank(id) {
		return nil, blank("person id")
	}
	return &Person{ID: id}, nil
}
