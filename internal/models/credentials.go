package models

// Credentials are the browser session values used to authenticate console calls.
type Credentials struct {
	AccessToken string
	CSRFToken   string
	// Cookies holds every name/value pair found in the source, replayed on each request.
	Cookies map[string]string
	// Source describes where the values came from, for display.
	Source string
}

// HasCSRFToken reports whether an anti-forgery token was found.
func (c Credentials) HasCSRFToken() bool {
	return c.CSRFToken != ""
}

// HasAccessToken reports whether a bearer token was found.
func (c Credentials) HasAccessToken() bool {
	return c.AccessToken != ""
}
