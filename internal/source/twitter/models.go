package twitter

// userResponse is the users-by-handle lookup payload.
type userResponse struct {
	Data *apiUser `json:"data"`
}

type apiUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

// timelineResponse is one page of the user's-tweets endpoint.
type timelineResponse struct {
	Data     []apiTweet `json:"data"`
	Includes struct {
		Media []apiMedia `json:"media"`
	} `json:"includes"`
	Meta apiMeta `json:"meta"`
}

type apiTweet struct {
	ID                string `json:"id"`
	CreatedAt         string `json:"created_at"`
	PossiblySensitive bool   `json:"possibly_sensitive"`
	Attachments       *struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

type apiMedia struct {
	MediaKey string `json:"media_key"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

type apiMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
}

// errorEnvelope captures platform-level errors, which may accompany a 200.
type errorEnvelope struct {
	Errors []apiError `json:"errors"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}
