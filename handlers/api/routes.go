package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes adds the v1 contest endpoints below the given /api router.
func RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/contests/query", APIContestsQueryV1).Methods("POST")
	router.HandleFunc("/v1/users/{userId}/contests", APIUserContestsV1).Methods("GET")
	router.HandleFunc("/v1/users/{userId}/creator-contests", APICreatorContestsV1).Methods("GET")
}
