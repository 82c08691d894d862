package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/JiaJunDeng5930/ChainContest-sub000/services"
)

const maxQueryBodySize = 1 << 20

// APIContestsQueryRequest is the body of the contest query endpoint
type APIContestsQueryRequest struct {
	Selector   *services.ContestSelector `json:"selector"`
	Includes   *APIContestIncludes       `json:"includes"`
	Pagination *services.Pagination      `json:"pagination"`
}

// APIContestIncludes selects the optional sub-aggregates of each contest.
// Leaderboard is "latest" or "version:N", empty skips the leaderboard.
type APIContestIncludes struct {
	Participants   bool   `json:"participants"`
	Rewards        bool   `json:"rewards"`
	Leaderboard    string `json:"leaderboard"`
	CreatorSummary bool   `json:"creatorSummary"`
}

// APIContestsQueryResponse represents the response for the contest query endpoint
type APIContestsQueryResponse struct {
	Status string                `json:"status"`
	Data   *services.ContestPage `json:"data"`
}

func (i *APIContestIncludes) toServiceIncludes() (*services.ContestIncludes, error) {
	includes := &services.ContestIncludes{}
	if i == nil {
		return includes, nil
	}

	includes.Participants = i.Participants
	includes.Rewards = i.Rewards
	includes.CreatorSummary = i.CreatorSummary
	if i.Leaderboard != "" {
		leaderboard, err := services.ParseLeaderboardInclude(i.Leaderboard)
		if err != nil {
			return nil, err
		}
		includes.Leaderboard = leaderboard
	}
	return includes, nil
}

// APIContestsQueryV1 queries contests by selector
// @Summary Query contests
// @Description Returns a page of contests matching the selector, ordered by time window end descending, with the requested sub-aggregates
// @Tags Contest
// @Accept json
// @Produce json
// @Param request body APIContestsQueryRequest true "Contest query"
// @Success 200 {object} APIContestsQueryResponse
// @Failure 400 {object} ApiResponse "Invalid selector, includes or cursor"
// @Failure 404 {object} ApiResponse "Leaderboard version not found"
// @Failure 422 {object} ApiResponse "Unsupported chain"
// @Failure 500 {object} ApiResponse "Internal server error"
// @Router /v1/contests/query [post]
// @ID queryContests
func APIContestsQueryV1(w http.ResponseWriter, r *http.Request) {
	request := &APIContestsQueryRequest{}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxQueryBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(request); err != nil {
		if errors.Is(err, io.EOF) {
			sendBadRequestResponse(w, r.URL.String(), "missing request body")
		} else {
			sendBadRequestResponse(w, r.URL.String(), "invalid request body: "+err.Error())
		}
		return
	}

	includes, err := request.Includes.toServiceIncludes()
	if err != nil {
		sendQueryErrorResponse(w, r.URL.String(), err)
		return
	}

	ctx, cancel := queryContext(r)
	defer cancel()

	page, err := services.GlobalContestService.QueryContests(ctx, request.Selector, includes, request.Pagination)
	if err != nil {
		sendQueryErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(w, r.URL.String(), page)
}
