package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

type callCostKey string

const (
	contextKeyCallCost callCostKey = "call_cost"
)

var (
	endpointCosts = make(map[string]int)
	costMutex     sync.RWMutex
)

// SetEndpointCost sets the call cost for a route path template, e.g.
// "/api/v1/users/{userId}/contests".
func SetEndpointCost(pathTemplate string, cost int) {
	costMutex.Lock()
	defer costMutex.Unlock()
	endpointCosts[pathTemplate] = cost
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return r.URL.Path
}

// CallCostMiddleware stores the call cost of the matched route in the request
// context. It must run as a mux middleware so the route is known.
func CallCostMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		costMutex.RLock()
		cost, exists := endpointCosts[routeTemplate(r)]
		costMutex.RUnlock()

		if !exists {
			cost = 1
		}

		ctx := context.WithValue(r.Context(), contextKeyCallCost, cost)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallCost extracts the call cost from request context, defaults to 1
func GetCallCost(r *http.Request) int {
	if cost, ok := r.Context().Value(contextKeyCallCost).(int); ok {
		return cost
	}
	return 1
}
