package repository

import "strings"

// Key layout in the flat store:
//
//	sessions/{name}           session settings
//	sessions/{name}/messages  full message log, one JSON blob
//	sessions/{name}/usage     cumulative usage totals
//	api_keys/{provider}       provider API key
const (
	sessionPrefix = "sessions/"
	apiKeyPrefix  = "api_keys/"

	messagesSuffix = "/messages"
	usageSuffix    = "/usage"
)

func sessionKey(name string) string {
	return sessionPrefix + name
}

func messagesKey(name string) string {
	return sessionPrefix + name + messagesSuffix
}

func usageKey(name string) string {
	return sessionPrefix + name + usageSuffix
}

func apiKeyKey(provider string) string {
	return apiKeyPrefix + provider
}

// sessionNameFromKey extracts the name from a settings key, returning false
// for message-log, usage and foreign keys.
func sessionNameFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, sessionPrefix) {
		return "", false
	}
	rest := key[len(sessionPrefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// belongsToSession reports whether key lives inside the session's namespace,
// without matching sessions whose name shares a prefix.
func belongsToSession(key, name string) bool {
	return key == sessionKey(name) || strings.HasPrefix(key, sessionKey(name)+"/")
}
