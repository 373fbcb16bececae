package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"gitlab.connectwisedev.com/catalog-insights/pkg/config"
	"gitlab.connectwisedev.com/catalog-insights/pkg/database"
	"gitlab.connectwisedev.com/catalog-insights/pkg/query"
	"gitlab.connectwisedev.com/catalog-insights/pkg/service"
)

var insights *service.Insights

var jsonHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST",
	"Access-Control-Allow-Headers": "Content-Type",
}

// filterFromRequest reads the filter descriptor from a JSON body, or from
// the query string when there is no body. Repeated query keys become
// lists (brands=A&brands=B); a single value may also be comma separated.
func filterFromRequest(request events.APIGatewayProxyRequest) (query.Filter, error) {
	if request.Body != "" {
		body := []byte(request.Body)
		if request.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(request.Body)
			if err != nil {
				return query.Filter{}, fmt.Errorf("invalid base64 body: %w", err)
			}
			body = decoded
		}
		return query.DecodeFilterJSON(body)
	}

	raw := make(map[string]any)
	for k, v := range request.QueryStringParameters {
		raw[k] = v
	}
	for k, vs := range request.MultiValueQueryStringParameters {
		if len(vs) > 1 {
			raw[k] = vs
		}
	}
	return query.ParseFilter(raw), nil
}

func errorResponse(status int, qerr *database.QueryError) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(qerr.JSON()),
	}
}

func handle(ctx context.Context, provider query.Provider, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	log.Printf("Received request: %s %s", request.HTTPMethod, request.Path)

	f, err := filterFromRequest(request)
	if err != nil {
		return errorResponse(http.StatusBadRequest, &database.QueryError{Status: "error", Message: err.Error()})
	}

	pack, err := provider.Insights(ctx, f)
	if err != nil {
		log.Printf("Error computing insights: %v", err)
		var qerr *database.QueryError
		if errors.As(err, &qerr) {
			return errorResponse(http.StatusInternalServerError, qerr)
		}
		return errorResponse(http.StatusInternalServerError, &database.QueryError{Status: "error", Message: "Failed to compute insights"})
	}

	body, err := json.Marshal(pack)
	if err != nil {
		log.Printf("Error marshaling insights to JSON: %v", err)
		return errorResponse(http.StatusInternalServerError, &database.QueryError{Status: "error", Message: "Failed to format response"})
	}

	headers := map[string]string{"Cache-Control": "private, max-age=60"}
	for k, v := range jsonHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return handle(ctx, insights.Provider, request), nil
}

func main() {
	config.LoadEnv() // Load environment variables first

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	insights, err = service.NewInsights(context.Background(), cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize insights: %v", err)
	}
	defer insights.Close()
	lambda.Start(handler)
}
