package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/JiaJunDeng5930/ChainContest-sub000/services"
)

const maxListParams = 100

// APIUserContestsResponse represents the response for the user contests endpoint
type APIUserContestsResponse struct {
	Status string                    `json:"status"`
	Data   *services.UserContestPage `json:"data"`
}

// APICreatorContestsResponse represents the response for the creator contests endpoint
type APICreatorContestsResponse struct {
	Status string                       `json:"status"`
	Data   *services.CreatorContestPage `json:"data"`
}

func parseUserContestFilter(r *http.Request) (*services.UserContestFilter, error) {
	query := r.URL.Query()
	filter := &services.UserContestFilter{}
	var err error

	if query.Has("contest_ids") {
		filter.ContestIds, err = parseStringList(query.Get("contest_ids"), maxListParams)
		if err != nil {
			return nil, err
		}
	}
	if query.Has("chain_ids") {
		filter.ChainIds, err = parseInt64List(query.Get("chain_ids"), maxListParams)
		if err != nil {
			return nil, err
		}
	}
	if query.Has("statuses") {
		filter.Statuses, err = parseStringList(query.Get("statuses"), maxListParams)
		if err != nil {
			return nil, err
		}
	}
	if query.Has("from") || query.Has("to") {
		filter.TimeRange = &services.TimeRange{
			From: query.Get("from"),
			To:   query.Get("to"),
		}
	}

	return filter, nil
}

// APIUserContestsV1 returns the contests a user took part in
// @Summary Get user contest activity
// @Description Returns the contests any wallet bound to the user participated in or claimed rewards from, most recent activity first
// @Tags Contest
// @Produce json
// @Param userId path string true "External user id"
// @Param contest_ids query string false "Comma-separated contest id allow-list"
// @Param chain_ids query string false "Comma-separated list of chain ids"
// @Param statuses query string false "Comma-separated list of contest statuses"
// @Param from query string false "Time range start (RFC3339)"
// @Param to query string false "Time range end (RFC3339)"
// @Param page_size query int false "Number of results to return (max 100, default 25)"
// @Param cursor query string false "Cursor of the next page"
// @Success 200 {object} APIUserContestsResponse
// @Failure 400 {object} ApiResponse "Invalid parameters"
// @Failure 422 {object} ApiResponse "Unsupported chain"
// @Failure 500 {object} ApiResponse "Internal server error"
// @Router /v1/users/{userId}/contests [get]
// @ID getUserContests
func APIUserContestsV1(w http.ResponseWriter, r *http.Request) {
	userId := strings.TrimSpace(mux.Vars(r)["userId"])
	if userId == "" {
		sendBadRequestResponse(w, r.URL.String(), "missing user id")
		return
	}

	filter, err := parseUserContestFilter(r)
	if err != nil {
		sendBadRequestResponse(w, r.URL.String(), err.Error())
		return
	}
	pagination, err := parsePagination(r)
	if err != nil {
		sendBadRequestResponse(w, r.URL.String(), err.Error())
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()

	page, err := services.GlobalContestService.QueryUserContests(ctx, userId, filter, pagination)
	if err != nil {
		sendQueryErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(w, r.URL.String(), page)
}

// APICreatorContestsV1 returns the contest creation requests of a user
// @Summary Get creator contests
// @Description Returns the contest creation requests of the user with their deployment artifact and contest, newest first
// @Tags Contest
// @Produce json
// @Param userId path string true "External user id"
// @Param chain_ids query string false "Comma-separated list of chain ids"
// @Param page_size query int false "Number of results to return (max 100, default 25)"
// @Param cursor query string false "Cursor of the next page"
// @Success 200 {object} APICreatorContestsResponse
// @Failure 400 {object} ApiResponse "Invalid parameters"
// @Failure 422 {object} ApiResponse "Unsupported chain"
// @Failure 500 {object} ApiResponse "Internal server error"
// @Router /v1/users/{userId}/creator-contests [get]
// @ID getCreatorContests
func APICreatorContestsV1(w http.ResponseWriter, r *http.Request) {
	userId := strings.TrimSpace(mux.Vars(r)["userId"])
	if userId == "" {
		sendBadRequestResponse(w, r.URL.String(), "missing user id")
		return
	}

	var filter *services.CreatorContestFilter
	if query := r.URL.Query(); query.Has("chain_ids") {
		chainIds, err := parseInt64List(query.Get("chain_ids"), maxListParams)
		if err != nil {
			sendBadRequestResponse(w, r.URL.String(), err.Error())
			return
		}
		filter = &services.CreatorContestFilter{ChainIds: chainIds}
	}
	pagination, err := parsePagination(r)
	if err != nil {
		sendBadRequestResponse(w, r.URL.String(), err.Error())
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()

	page, err := services.GlobalContestService.QueryCreatorContests(ctx, userId, filter, pagination)
	if err != nil {
		sendQueryErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(w, r.URL.String(), page)
}
