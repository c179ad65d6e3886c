package domain

// CalendarItem is one planned post in a content calendar.
type CalendarItem struct {
	Topic       string   `json:"topic"`
	SearchTerms []string `json:"searchTerms"`
}

// ContentCalendar is the structured output of the calendar generation step.
type ContentCalendar struct {
	Content []CalendarItem `json:"content"`
}

// InstagramPost is the structured output of the post generation step.
type InstagramPost struct {
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	Images       []string `json:"images"`
	FirstComment string   `json:"firstComment"`
}

// GeneratedPost pairs a generated post with the topic and source url it was
// built from.
type GeneratedPost struct {
	Topic string        `json:"topic"`
	URL   string        `json:"url"`
	Post  InstagramPost `json:"post"`
}

// ImageDescription is one successfully described image.
type ImageDescription struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// ImageError records an image that could not be described. It is excluded
// from the description set without failing the step.
type ImageError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BrandVoiceProfile is the structured output of the website analysis step.
type BrandVoiceProfile struct {
	Description string `json:"description"`
	BrandVoice  string `json:"brandVoice"`
	Audience    string `json:"audience"`
}
