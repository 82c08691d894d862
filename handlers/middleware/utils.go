package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"
)

// APIErrorResponse writes an error in the api response envelope
func APIErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"status": message,
		"data":   nil,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Error("failed to encode API error response")
	}
}

// GetClientIP extracts the real client IP from the request
func GetClientIP(r *http.Request) string {
	var proxyCount uint
	if utils.Config != nil {
		proxyCount = utils.Config.Api.ProxyCount
	}

	var ip string

	if proxyCount > 0 {
		forwardIps := strings.Split(r.Header.Get("X-Forwarded-For"), ", ")
		forwardIdx := len(forwardIps) - int(proxyCount)
		if forwardIdx >= 0 {
			ip = strings.TrimSpace(forwardIps[forwardIdx])
		}
	}
	if ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
