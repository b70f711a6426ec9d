package youtube

import (
	"encoding/json"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
)

// apiError is the provider's error envelope. Only the fields the classifier
// reads are declared.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// classifyRule maps a status/reason pair to a domain kind. An empty reason
// matches any reason for that status.
type classifyRule struct {
	status int
	reason string
	kind   errors.Kind
}

// Ordered: first match wins, so reason-specific rules precede the
// status-wide fallbacks.
var classifyRules = []classifyRule{
	{403, "quotaExceeded", errors.KindQuotaExceeded},
	{403, "dailyLimitExceeded", errors.KindQuotaExceeded},
	{403, "rateLimitExceeded", errors.KindQuotaExceeded},
	{403, "userRateLimitExceeded", errors.KindQuotaExceeded},
	{403, "", errors.KindPermissionDenied},
	{404, "", errors.KindResourceNotFound},
	{401, "", errors.KindReauthorizationRequired},
}

// classify converts a provider error response into a domain error. It is
// total: any shape it does not recognize becomes UpstreamError, so the raw
// provider body never leaks to callers.
func classify(operation, userID string, statusCode int, body []byte) error {
	var parsed apiError
	_ = json.Unmarshal(body, &parsed)

	reason := ""
	if len(parsed.Error.Errors) > 0 {
		reason = parsed.Error.Errors[0].Reason
	}

	for _, rule := range classifyRules {
		if rule.status != statusCode {
			continue
		}
		if rule.reason != "" && rule.reason != reason {
			continue
		}
		switch rule.kind {
		case errors.KindQuotaExceeded:
			return &errors.ErrQuotaExceeded{Operation: operation}
		case errors.KindPermissionDenied:
			return &errors.ErrPermissionDenied{Operation: operation, Resource: reason}
		case errors.KindResourceNotFound:
			return &errors.ErrResourceNotFound{Operation: operation, Resource: parsed.Error.Message}
		case errors.KindReauthorizationRequired:
			return &errors.ErrReauthorizationRequired{UserID: userID, Reason: "provider rejected the access secret"}
		}
	}

	return &errors.ErrUpstream{Operation: operation, StatusCode: statusCode}
}
