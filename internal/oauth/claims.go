package oauth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// parseIDTokenClaims extracts email, chatgpt_plan_type, and
// chatgpt_account_id from an unverified JWT ID token. Malformed input
// yields three empty strings; it never returns an error, matching the
// switcher's handling of the same claims on import.
func parseIDTokenClaims(idToken string) (email, planType, chatGPTAccountID string) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return "", "", ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", ""
	}
	var claims struct {
		Email string `json:"email"`
		Auth  struct {
			ChatGPTPlanType  string `json:"chatgpt_plan_type"`
			ChatGPTAccountID string `json:"chatgpt_account_id"`
		} `json:"https://api.openai.com/auth"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", "", ""
	}
	return claims.Email, claims.Auth.ChatGPTPlanType, claims.Auth.ChatGPTAccountID
}
