package telemetry

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String("method", method)
}

func routeAttr(route string) attribute.KeyValue {
	if route == "" {
		route = "unmatched"
	}
	return attribute.String("route", route)
}

func statusAttr(status int) attribute.KeyValue {
	return attribute.String("status", strconv.Itoa(status))
}

func codeAttr(code string) attribute.KeyValue {
	return attribute.String("code", code)
}

func kindAttr(kind string) attribute.KeyValue {
	return attribute.String("kind", kind)
}

func severityAttr(severity string) attribute.KeyValue {
	return attribute.String("severity", severity)
}

func resultAttr(result string) attribute.KeyValue {
	return attribute.String("result", result)
}

func jobAttr(job string) attribute.KeyValue {
	return attribute.String("job", job)
}

func serviceAttr(service string) attribute.KeyValue {
	return attribute.String("service", service)
}
