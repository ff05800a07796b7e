package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"pet-triage-backend/internal/bootstrap"
	"pet-triage-backend/internal/shared/config"
	"pet-triage-backend/internal/shared/server/respond"
	"pet-triage-backend/internal/shared/telemetry"
)

// The app is built on the first invocation and reused while the execution
// environment stays warm.
var (
	once    sync.Once
	adapter *ginadapter.GinLambdaV2
	bootErr error
)

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	once.Do(func() {
		app, err := bootstrap.Build(config.Load())
		if err != nil {
			bootErr = err
			return
		}
		adapter = ginadapter.NewV2(app.Router)
	})
	if bootErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error":      bootErr.Error(),
			"request_id": req.RequestContext.RequestID,
		})
		return unavailable(), nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

// unavailable mirrors the API error envelope so clients see one shape.
func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "service_unavailable",
		Message: "service is starting up, try again shortly",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json", "Cache-Control": "no-store"},
	}
}

func main() {
	lambda.Start(handler)
}
