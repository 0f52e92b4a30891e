package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/api"
	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/search"
)

// SearchService is the part of search.Service the transport needs.
type SearchService interface {
	HandleCoordinateSearch(ctx context.Context, lat, lon float64) []search.Reply
	SearchCity(ctx context.Context, name string) []search.Reply
	SearchPreset(ctx context.Context) []search.Reply
	AddStation(ctx context.Context, sub models.UserSubmission) (search.Reply, string, error)
}

var _ SearchService = (*search.Service)(nil)

type StationsHandler struct {
	service SearchService
}

func NewStationsHandler(service SearchService) *StationsHandler {
	return &StationsHandler{
		service: service,
	}
}

// HandleRequest serves GET searches (by city, the Minsk preset or lat/lon)
// and POST station submissions.
func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod == http.MethodPost {
		return h.handleSubmission(ctx, request)
	}

	params := request.QueryStringParameters

	if city, ok := params["city"]; ok {
		if strings.TrimSpace(city) == "" {
			return api.Error("City must not be empty", http.StatusBadRequest)
		}
		return api.Success(api.NewRepliesResponse(h.service.SearchCity(ctx, city)))
	}

	if _, ok := params["preset"]; ok {
		return api.Success(api.NewRepliesResponse(h.service.SearchPreset(ctx)))
	}

	lat, lon, found, err := api.ParseCoordinates(params)
	if err != nil {
		var invalidCoordErr api.InvalidCoordinatesError
		if errors.As(err, &invalidCoordErr) {
			return api.Error(err.Error(), http.StatusBadRequest)
		}
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}
	if !found {
		return api.Error("Missing lat/lon, city or preset", http.StatusBadRequest)
	}

	return api.Success(api.NewRepliesResponse(h.service.HandleCoordinateSearch(ctx, lat, lon)))
}

func (h *StationsHandler) handleSubmission(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var sub models.UserSubmission
	if err := json.Unmarshal([]byte(request.Body), &sub); err != nil {
		log.Debug().Err(err).Msg("Rejecting malformed submission body")
		return api.Error("Invalid request body", http.StatusBadRequest)
	}

	reply, id, err := h.service.AddStation(ctx, sub)
	if err != nil {
		return api.Respond(api.NewSubmissionResponse("", reply), http.StatusUnprocessableEntity)
	}
	return api.Respond(api.NewSubmissionResponse(id, reply), http.StatusCreated)
}
