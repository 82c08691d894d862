package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/JiaJunDeng5930/ChainContest-sub000/services"
	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"
)

type ApiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// ApiErrorData is the data of an error response.
type ApiErrorData struct {
	Kind string   `json:"kind"`
	Ids  []string `json:"ids,omitempty"`
}

var logger_api = logrus.StandardLogger().WithField("module", "api")

// queryContext bounds a request to the configured query timeout.
func queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if utils.Config == nil || utils.Config.Server.QueryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), utils.Config.Server.QueryTimeout)
}

func parseInt64List(origParam string, limit int) ([]int64, error) {
	params := strings.Split(origParam, ",")
	if len(params) > limit {
		return nil, fmt.Errorf("only a maximum of %d values are allowed", limit)
	}

	values := make([]int64, 0, len(params))
	for _, param := range params {
		value, err := strconv.ParseInt(strings.TrimSpace(param), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %v", param)
		}
		values = append(values, value)
	}
	return values, nil
}

func parseStringList(origParam string, limit int) ([]string, error) {
	params := strings.Split(origParam, ",")
	if len(params) > limit {
		return nil, fmt.Errorf("only a maximum of %d values are allowed", limit)
	}

	values := make([]string, 0, len(params))
	for _, param := range params {
		values = append(values, strings.TrimSpace(param))
	}
	return values, nil
}

// parsePagination reads the page_size and cursor query parameters.
func parsePagination(r *http.Request) (*services.Pagination, error) {
	query := r.URL.Query()
	pagination := &services.Pagination{
		Cursor: query.Get("cursor"),
	}
	if query.Has("page_size") {
		pageSize, err := strconv.Atoi(query.Get("page_size"))
		if err != nil {
			return nil, fmt.Errorf("invalid page_size")
		}
		pagination.PageSize = pageSize
	}
	return pagination, nil
}

func errorStatusCode(err error) int {
	switch {
	case errors.Is(err, services.ErrInputInvalid):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrResourceUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// sendQueryErrorResponse maps a query failure to its http status. Internal
// failures are logged and answered without details.
func sendQueryErrorResponse(w http.ResponseWriter, route string, err error) {
	statusCode := errorStatusCode(err)
	data := &ApiErrorData{
		Kind: services.ErrorKindName(err),
	}

	message := err.Error()
	var queryErr *services.QueryError
	if errors.As(err, &queryErr) {
		message = queryErr.Message
		data.Ids = queryErr.Ids
	} else if statusCode == http.StatusInternalServerError {
		logger_api.WithError(err).Errorf("error processing API %v route", route)
		message = "internal error"
	}

	sendErrorWithCodeResponse(w, route, message, data, statusCode)
}

func sendBadRequestResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, &ApiErrorData{Kind: services.ErrorKindName(services.ErrInputInvalid)}, http.StatusBadRequest)
}

func sendErrorWithCodeResponse(w http.ResponseWriter, route, message string, data *ApiErrorData, errorcode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errorcode)
	j := json.NewEncoder(w)
	response := &ApiResponse{}
	response.Status = "ERROR: " + message
	response.Data = data
	err := j.Encode(response)

	if err != nil {
		logger_api.Errorf("error serializing json error for API %v route: %v", route, err)
	}
}

func SendOKResponse(w http.ResponseWriter, route string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	j := json.NewEncoder(w)
	response := &ApiResponse{}
	response.Status = "OK"
	response.Data = data

	err := j.Encode(response)
	if err != nil {
		logger_api.Errorf("error serializing json data for API %v route: %v", route, err)
	}
}
