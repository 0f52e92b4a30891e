package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/bbernstein/chargefinder/internal/search"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

func (r APIResponse) GetResponseType() string {
	return r.ResponseType
}

type RepliesResponse struct {
	APIResponse
	Replies []search.Reply `json:"replies"`
}

type SubmissionResponse struct {
	APIResponse
	ID    string       `json:"id,omitempty"`
	Reply search.Reply `json:"reply"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

func NewRepliesResponse(replies []search.Reply) *RepliesResponse {
	if replies == nil {
		replies = []search.Reply{}
	}
	return &RepliesResponse{
		APIResponse: APIResponse{ResponseType: "replies"},
		Replies:     replies,
	}
}

func NewSubmissionResponse(id string, reply search.Reply) *SubmissionResponse {
	return &SubmissionResponse{
		APIResponse: APIResponse{ResponseType: "submission"},
		ID:          id,
		Reply:       reply,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	return Respond(body, http.StatusOK)
}

func Respond(body interface{}, statusCode int) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders(),
		Body:       string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders(),
		Body:       string(body),
	}, nil
}

func jsonHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

// ParseCoordinates reads lat and lon. found is false when either is absent.
func ParseCoordinates(params map[string]string) (lat, lon float64, found bool, err error) {
	latStr, hasLat := params["lat"]
	lonStr, hasLon := params["lon"]

	if !hasLat || !hasLon {
		return 0, 0, false, nil
	}

	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, true, err
	}

	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, true, err
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, true, InvalidCoordinatesError{}
	}

	return lat, lon, true, nil
}

type InvalidCoordinatesError struct{}

func (e InvalidCoordinatesError) Error() string {
	return "Invalid coordinates"
}
