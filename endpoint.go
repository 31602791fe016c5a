package agentrun

import (
	"net/url"
	"regexp"
	"strings"
)

var ipv4Prefix = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// ConstructEndpointURL turns a user supplied endpoint into a base URL.
// Local hosts default to http, everything else to https.
func ConstructEndpointURL(value string) string {
	if value == "" {
		return ""
	}

	decoded, err := url.PathUnescape(value)
	if err != nil {
		decoded = value
	}

	switch {
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return decoded
	case strings.HasPrefix(value, "localhost"), ipv4Prefix.MatchString(value):
		return "http://" + decoded
	default:
		return "https://" + decoded
	}
}

func playgroundURL(base string, query url.Values, segments ...string) string {
	u := strings.TrimSuffix(base, "/") + "/v1/playground"
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func userQuery(userID string) url.Values {
	if userID == "" {
		return nil
	}
	return url.Values{"user_id": {userID}}
}

func StatusURL(base string) string {
	return playgroundURL(base, nil, "status")
}

func AgentsURL(base string) string {
	return playgroundURL(base, nil, "agents")
}

// RunURL is the endpoint a message is posted to for a streamed run.
func RunURL(base, agentID string) string {
	return playgroundURL(base, nil, "agents", agentID, "runs")
}

func SessionsURL(base, agentID, userID string) string {
	return playgroundURL(base, userQuery(userID), "agents", agentID, "sessions")
}

func SessionURL(base, agentID, sessionID, userID string) string {
	return playgroundURL(base, userQuery(userID), "agents", agentID, "sessions", sessionID)
}
