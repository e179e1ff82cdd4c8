package http

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/labstack/echo/v4"
)

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

// RequestValidator checks requests against the OpenAPI document before they reach a
// handler. Operations are looked up by the route echo matched, so the document and
// the router never disagree about which operation a path belongs to. Routes the
// document does not describe pass through. Authentication is left to ActorResolver.
func RequestValidator(swagger *openapi3.T) echo.MiddlewareFunc {
	routes := make(map[string]*routers.Route)
	for path, item := range swagger.Paths.Map() {
		echoPath := pathParam.ReplaceAllString(path, ":$1")
		for method, operation := range item.Operations() {
			routes[method+" "+echoPath] = &routers.Route{
				Spec:      swagger,
				Path:      path,
				PathItem:  item,
				Method:    method,
				Operation: operation,
			}
		}
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route, ok := routes[req.Method+" "+c.Path()]
			if !ok {
				return next(c)
			}

			pathParams := make(map[string]string, len(c.ParamNames()))
			for i, name := range c.ParamNames() {
				pathParams[name] = c.ParamValues()[i]
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err)).SetInternal(err)
			}
			return next(c)
		}
	}
}

// validationMessage keeps the reason and leaves out the schema dump kin-openapi
// attaches to its errors.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err.Error()
	}

	prefix := "request body is invalid"
	if reqErr.Parameter != nil {
		prefix = fmt.Sprintf("parameter %q is invalid", reqErr.Parameter.Name)
	}
	var schemaErr *openapi3.SchemaError
	switch {
	case errors.As(reqErr.Err, &schemaErr):
		return prefix + ": " + schemaErr.Reason
	case reqErr.Reason != "":
		return prefix + ": " + reqErr.Reason
	default:
		return prefix
	}
}
