package graph

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"feedql/internal/middleware"
	"feedql/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"go.opentelemetry.io/otel/attribute"
)

// Request is a GraphQL-over-HTTP request.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Response is written for every executed request.
type Response struct {
	Data   interface{}      `json:"data,omitempty"`
	Errors []FormattedError `json:"errors,omitempty"`
}

// Handler serves a schema over GET and POST.
type Handler struct {
	schema graphql.Schema
}

func NewHandler(schema graphql.Schema) *Handler {
	return &Handler{schema: schema}
}

func requestError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{Errors: []FormattedError{{Message: message, Status: status}}})
}

// ServeHTTP executes the request with the caller's identity in context.
func (h *Handler) ServeHTTP(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return requestError(c, fiber.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return requestError(c, fiber.StatusBadRequest, "Must provide query string.")
	}
	if c.Method() == fiber.MethodGet && isMutation(req.Query, req.OperationName) {
		c.Set(fiber.HeaderAllow, fiber.MethodPost)
		return requestError(c, fiber.StatusMethodNotAllowed, "Can only perform a mutation operation from a POST request.")
	}

	start := time.Now()
	ctx, span := observability.StartSpan(c.UserContext(), "graphql.execute",
		attribute.String("graphql.operation.name", req.OperationName),
	)
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	resp := Response{Errors: FormatErrors(result.Errors)}
	status := fiber.StatusOK
	if hasData(result.Data) {
		resp.Data = result.Data
	} else if len(resp.Errors) > 0 {
		status = resp.Errors[0].Status
	}

	failed := len(resp.Errors) > 0
	observability.ObserveGraphQL(req.OperationName, start, failed)
	if failed {
		span.SetAttributes(attribute.Int("graphql.errors", len(resp.Errors)))
		middleware.Logger.DebugContext(ctx, "GraphQL request returned errors",
			slog.String("operation", req.OperationName),
			slog.String("first_error", resp.Errors[0].Message),
			slog.Int("status", resp.Errors[0].Status),
		)
	}
	span.End()

	return c.Status(status).JSON(resp)
}

func parseRequest(c *fiber.Ctx) (Request, error) {
	var req Request
	if c.Method() == fiber.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if raw := c.Query("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				return req, fiber.NewError(fiber.StatusBadRequest, "Variables are invalid JSON.")
			}
		}
		return req, nil
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), "application/graphql") {
		req.Query = string(c.Body())
		return req, nil
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "POST body sent invalid JSON.")
	}
	return req, nil
}

func isMutation(query, operationName string) bool {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return false
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if operationName != "" && (op.Name == nil || op.Name.Value != operationName) {
			continue
		}
		return op.Operation == ast.OperationTypeMutation
	}
	return false
}

// hasData reports whether at least one top-level field resolved.
func hasData(data interface{}) bool {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data != nil
	}
	for _, v := range m {
		if v != nil {
			return true
		}
	}
	return false
}
