package openapi

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type RouteBuilder struct {
	openapi   *OpenAPI
	method    string
	path      string
	operation *openapi3.Operation
}

func (rb *RouteBuilder) Summary(summary string) *RouteBuilder {
	rb.operation.Summary = summary
	return rb
}

func (rb *RouteBuilder) Description(description string) *RouteBuilder {
	rb.operation.Description = description
	return rb
}

func (rb *RouteBuilder) OperationID(id string) *RouteBuilder {
	rb.operation.OperationID = id
	return rb
}

func (rb *RouteBuilder) Tags(tags ...string) *RouteBuilder {
	rb.operation.Tags = append(rb.operation.Tags, tags...)
	return rb
}

func (rb *RouteBuilder) Body(example any, description string) *RouteBuilder {
	rb.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(rb.openapi.schemaFor(example)),
		},
	}
	return rb
}

// Response documents a status code; a nil example means an empty body.
func (rb *RouteBuilder) Response(statusCode int, example any, description string) *RouteBuilder {
	response := &openapi3.Response{Description: &description}
	if example != nil {
		response.Content = openapi3.NewContentWithJSONSchemaRef(rb.openapi.schemaFor(example))
	}
	rb.operation.Responses.Set(strconv.Itoa(statusCode), &openapi3.ResponseRef{Value: response})
	return rb
}

// Headers attaches string response headers to an already documented status.
func (rb *RouteBuilder) Headers(statusCode int, headers map[string]string) *RouteBuilder {
	ref := rb.operation.Responses.Value(strconv.Itoa(statusCode))
	if ref == nil || ref.Value == nil {
		return rb
	}

	if ref.Value.Headers == nil {
		ref.Value.Headers = make(openapi3.Headers)
	}
	for name, desc := range headers {
		ref.Value.Headers[name] = &openapi3.HeaderRef{
			Value: &openapi3.Header{
				Parameter: openapi3.Parameter{
					Description: desc,
					Schema:      openapi3.NewStringSchema().NewRef(),
				},
			},
		}
	}
	return rb
}

func (rb *RouteBuilder) Security(schemes ...string) *RouteBuilder {
	if rb.operation.Security == nil {
		rb.operation.Security = openapi3.NewSecurityRequirements()
	}
	for _, scheme := range schemes {
		rb.operation.Security.With(openapi3.NewSecurityRequirement().Authenticate(scheme))
	}
	return rb
}

func (rb *RouteBuilder) Build() {
	if rb.operation.OperationID == "" {
		rb.operation.OperationID = defaultOperationID(rb.method, rb.path)
	}
	rb.openapi.addOperation(rb.method, rb.path, rb.operation)
}

// defaultOperationID turns "POST /api/otp/challenges/resend" into
// "postApiOtpChallengesResend".
func defaultOperationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '-' || r == '_' || r == ':' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
