package classify

import (
	"net/http"
	"strings"
	"time"

	"github.com/ryswick/floodgate/types"
)

// Classification reasons attached to results for diagnostics.
const (
	ReasonEmergencyURI         = "emergency_uri"
	ReasonIoControlURI         = "io_control_uri"
	ReasonIrrigationControlURI = "irrigation_control_uri"
	ReasonAuthURI              = "auth_uri"
	ReasonUiCriticalURI        = "ui_critical_uri"
	ReasonIoStatusURI          = "io_status_uri"
	ReasonBackgroundURI        = "background_uri"
	ReasonStaticFileURI        = "static_file_uri"
	ReasonPostMethod           = "post_method"
	ReasonPutMethod            = "put_method"
	ReasonDeleteMethod         = "delete_method"
	ReasonGetMethod            = "get_method"
	ReasonDefaultNormal        = "default_normal"
	ReasonURIOverride          = "uri_override"
	ReasonCustomClassifier     = "custom_classifier"
)

// Result carries the outcome of classifying one request. The processing time
// estimate feeds instrumentation only; scheduling decisions ignore it.
type Result struct {
	Priority      types.PriorityLevel
	EstimatedTime time.Duration
	RequiresAuth  bool
	IsEmergency   bool
	Reason        string
}

// staticExtensions are URI markers classified as static assets.
var staticExtensions = []string{".css", ".js", ".html", ".png", ".jpg", ".ico"}

// Classify maps a request URI and HTTP method to a priority level. It is
// deterministic and pure: URI rules are evaluated in order with first match
// winning, then method rules, then the default. URI matching is by substring,
// so query strings and trailing segments do not defeat a rule.
func Classify(uri, method string) Result {
	if r, ok := classifyByURI(uri); ok {
		return r
	}
	if r, ok := classifyByMethod(method); ok {
		return r
	}
	return Result{
		Priority:      types.PriorityNormal,
		EstimatedTime: 1000 * time.Millisecond,
		Reason:        ReasonDefaultNormal,
	}
}

func classifyByURI(uri string) (Result, bool) {
	if strings.Contains(uri, "/api/emergency") || strings.Contains(uri, "/emergency-stop") {
		return Result{
			Priority:      types.PriorityEmergency,
			EstimatedTime: 50 * time.Millisecond,
			IsEmergency:   true,
			Reason:        ReasonEmergencyURI,
		}, true
	}

	if strings.Contains(uri, "/api/io/points/") && strings.Contains(uri, "/set") {
		return Result{
			Priority:      types.PriorityIoCritical,
			EstimatedTime: 100 * time.Millisecond,
			Reason:        ReasonIoControlURI,
		}, true
	}

	if strings.Contains(uri, "/api/irrigation/zones/") && strings.Contains(uri, "/activate") {
		return Result{
			Priority:      types.PriorityIoCritical,
			EstimatedTime: 200 * time.Millisecond,
			Reason:        ReasonIrrigationControlURI,
		}, true
	}

	if strings.Contains(uri, "/api/auth/") {
		// Auth endpoints never require prior authentication.
		return Result{
			Priority:      types.PriorityAuthentication,
			EstimatedTime: 500 * time.Millisecond,
			Reason:        ReasonAuthURI,
		}, true
	}

	if strings.Contains(uri, "/api/status") || strings.Contains(uri, "/api/dashboard/") {
		return Result{
			Priority:      types.PriorityUiCritical,
			EstimatedTime: 300 * time.Millisecond,
			Reason:        ReasonUiCriticalURI,
		}, true
	}

	if strings.Contains(uri, "/api/io/points") && !strings.Contains(uri, "/set") {
		return Result{
			Priority:      types.PriorityUiCritical,
			EstimatedTime: 200 * time.Millisecond,
			Reason:        ReasonIoStatusURI,
		}, true
	}

	if strings.Contains(uri, "/api/logs/") || strings.Contains(uri, "/api/statistics/") {
		return Result{
			Priority:      types.PriorityBackground,
			EstimatedTime: 2000 * time.Millisecond,
			Reason:        ReasonBackgroundURI,
		}, true
	}

	for _, ext := range staticExtensions {
		if strings.Contains(uri, ext) {
			return Result{
				Priority:      types.PriorityNormal,
				EstimatedTime: 100 * time.Millisecond,
				Reason:        ReasonStaticFileURI,
			}, true
		}
	}

	return Result{}, false
}

func classifyByMethod(method string) (Result, bool) {
	switch method {
	case http.MethodPost:
		return Result{
			Priority:      types.PriorityUiCritical,
			EstimatedTime: 800 * time.Millisecond,
			Reason:        ReasonPostMethod,
		}, true
	case http.MethodPut:
		return Result{
			Priority:      types.PriorityUiCritical,
			EstimatedTime: 600 * time.Millisecond,
			Reason:        ReasonPutMethod,
		}, true
	case http.MethodDelete:
		return Result{
			Priority:      types.PriorityNormal,
			EstimatedTime: 400 * time.Millisecond,
			Reason:        ReasonDeleteMethod,
		}, true
	case http.MethodGet:
		return Result{
			Priority:      types.PriorityNormal,
			EstimatedTime: 300 * time.Millisecond,
			Reason:        ReasonGetMethod,
		}, true
	default:
		return Result{}, false
	}
}
