package gemini

// ComposeRequest carries one photobooth generation call. UserImage is
// mandatory; IdolImage switches the prompt into duo mode. Both accept base64
// with or without a data-URI prefix.
type ComposeRequest struct {
	UserImage        string
	IdolImage        string
	StylePrompt      string
	BackgroundPrompt string
}

// ComposeResult holds the raw base64 of the generated photo, without any
// data-URI prefix.
type ComposeResult struct {
	ImageBase64 string
	MimeType    string
}
