package model

// Settings holds the Salesforce connected-app configuration, persisted in the
// settings store and editable through the admin API.
//
// RedirectURI is always computed by the server as
// {public base URL}/salesforce/callback — it is shown to admins but never
// accepted from them, since the connected app registered at Salesforce must
// point at exactly this path.
type Settings struct {
	LoginURL     string `json:"loginUrl"`    // e.g. "https://login.salesforce.com"
	ClientID     string `json:"clientId"`    // connected-app consumer key
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"` // read-only, computed
}

// Complete reports whether every field required to run the OAuth flow is set.
// The callback refuses to start an exchange against a half-configured app.
func (s Settings) Complete() bool {
	return s.LoginURL != "" && s.ClientID != "" && s.ClientSecret != "" && s.RedirectURI != ""
}
