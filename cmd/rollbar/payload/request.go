package payload

// Request describes the HTTP request being served when the error occurred.
type Request struct {
	Extensible
	URL         *string
	Method      *string
	Headers     map[string]string
	Params      map[string]any
	GetParams   map[string]any
	QueryString *string
	PostParams  map[string]any
	PostBody    *string
	UserIP      *string
}

func (r *Request) Normalize(f Fields) {
	r.URL = f.PopString("url")
	r.Method = f.PopString("method")
	r.Headers = f.PopStringMap("headers")
	r.Params = f.PopMap("params")
	r.GetParams = f.PopMap("get_params")
	r.QueryString = f.PopString("query_string")
	r.PostParams = f.PopMap("post_params")
	r.PostBody = f.PopString("post_body")
	r.UserIP = f.PopString("user_ip")
}

func (r *Request) Denormalize(w *FieldWriter) {
	w.PutString("url", r.URL)
	w.PutString("method", r.Method)
	if r.Headers != nil {
		w.Put("headers", r.Headers)
	}
	if r.Params != nil {
		w.Put("params", r.Params)
	}
	if r.GetParams != nil {
		w.Put("get_params", r.GetParams)
	}
	w.PutString("query_string", r.QueryString)
	if r.PostParams != nil {
		w.Put("post_params", r.PostParams)
	}
	w.PutString("post_body", r.PostBody)
	w.PutString("user_ip", r.UserIP)
}

func (r *Request) MarshalJSON() ([]byte, error) {
	return MarshalRecord(r)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	return UnmarshalRecord(data, r)
}
