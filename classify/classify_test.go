package classify

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryswick/floodgate/types"
)

func TestClassify_URIRules(t *testing.T) {
	tests := []struct {
		name         string
		uri          string
		method       string
		wantPriority types.PriorityLevel
		wantReason   string
		wantEstimate time.Duration
	}{
		{
			name:         "emergency api uri",
			uri:          "/api/emergency/stop",
			method:       http.MethodPost,
			wantPriority: types.PriorityEmergency,
			wantReason:   ReasonEmergencyURI,
			wantEstimate: 50 * time.Millisecond,
		},
		{
			name:         "emergency stop alias",
			uri:          "/emergency-stop",
			method:       http.MethodPost,
			wantPriority: types.PriorityEmergency,
			wantReason:   ReasonEmergencyURI,
			wantEstimate: 50 * time.Millisecond,
		},
		{
			name:         "io point set",
			uri:          "/api/io/points/7/set",
			method:       http.MethodPost,
			wantPriority: types.PriorityIoCritical,
			wantReason:   ReasonIoControlURI,
			wantEstimate: 100 * time.Millisecond,
		},
		{
			name:         "zone activate",
			uri:          "/api/irrigation/zones/3/activate",
			method:       http.MethodPost,
			wantPriority: types.PriorityIoCritical,
			wantReason:   ReasonIrrigationControlURI,
			wantEstimate: 200 * time.Millisecond,
		},
		{
			name:         "auth namespace",
			uri:          "/api/auth/login",
			method:       http.MethodPost,
			wantPriority: types.PriorityAuthentication,
			wantReason:   ReasonAuthURI,
			wantEstimate: 500 * time.Millisecond,
		},
		{
			name:         "status endpoint",
			uri:          "/api/status",
			method:       http.MethodGet,
			wantPriority: types.PriorityUiCritical,
			wantReason:   ReasonUiCriticalURI,
			wantEstimate: 300 * time.Millisecond,
		},
		{
			name:         "dashboard namespace",
			uri:          "/api/dashboard/zones",
			method:       http.MethodGet,
			wantPriority: types.PriorityUiCritical,
			wantReason:   ReasonUiCriticalURI,
			wantEstimate: 300 * time.Millisecond,
		},
		{
			name:         "io point read is status not control",
			uri:          "/api/io/points",
			method:       http.MethodGet,
			wantPriority: types.PriorityUiCritical,
			wantReason:   ReasonIoStatusURI,
			wantEstimate: 200 * time.Millisecond,
		},
		{
			name:         "logs namespace",
			uri:          "/api/logs/system",
			method:       http.MethodGet,
			wantPriority: types.PriorityBackground,
			wantReason:   ReasonBackgroundURI,
			wantEstimate: 2000 * time.Millisecond,
		},
		{
			name:         "statistics namespace",
			uri:          "/api/statistics/water",
			method:       http.MethodGet,
			wantPriority: types.PriorityBackground,
			wantReason:   ReasonBackgroundURI,
			wantEstimate: 2000 * time.Millisecond,
		},
		{
			name:         "stylesheet",
			uri:          "/style.css",
			method:       http.MethodGet,
			wantPriority: types.PriorityNormal,
			wantReason:   ReasonStaticFileURI,
			wantEstimate: 100 * time.Millisecond,
		},
		{
			name:         "script with query string",
			uri:          "/assets/app.js?v=3",
			method:       http.MethodGet,
			wantPriority: types.PriorityNormal,
			wantReason:   ReasonStaticFileURI,
			wantEstimate: 100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Classify(tt.uri, tt.method)
			assert.Equal(t, tt.wantPriority, r.Priority)
			assert.Equal(t, tt.wantReason, r.Reason)
			assert.Equal(t, tt.wantEstimate, r.EstimatedTime)
		})
	}
}

func TestClassify_EmergencyFlag(t *testing.T) {
	r := Classify("/api/emergency/stop", http.MethodPost)
	assert.True(t, r.IsEmergency)

	r = Classify("/api/io/points/1/set", http.MethodPost)
	assert.False(t, r.IsEmergency)
}

func TestClassify_URIRulesWinOverMethod(t *testing.T) {
	// A POST to a background URI stays background; the method rule only
	// applies when no URI rule matched.
	r := Classify("/api/logs/system", http.MethodPost)
	assert.Equal(t, types.PriorityBackground, r.Priority)
	assert.Equal(t, ReasonBackgroundURI, r.Reason)
}

func TestClassify_MethodFallback(t *testing.T) {
	tests := []struct {
		method       string
		wantPriority types.PriorityLevel
		wantReason   string
		wantEstimate time.Duration
	}{
		{http.MethodPost, types.PriorityUiCritical, ReasonPostMethod, 800 * time.Millisecond},
		{http.MethodPut, types.PriorityUiCritical, ReasonPutMethod, 600 * time.Millisecond},
		{http.MethodDelete, types.PriorityNormal, ReasonDeleteMethod, 400 * time.Millisecond},
		{http.MethodGet, types.PriorityNormal, ReasonGetMethod, 300 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r := Classify("/api/zones", tt.method)
			assert.Equal(t, tt.wantPriority, r.Priority)
			assert.Equal(t, tt.wantReason, r.Reason)
			assert.Equal(t, tt.wantEstimate, r.EstimatedTime)
		})
	}
}

func TestClassify_Default(t *testing.T) {
	r := Classify("/api/zones", http.MethodPatch)
	assert.Equal(t, types.PriorityNormal, r.Priority)
	assert.Equal(t, ReasonDefaultNormal, r.Reason)
	assert.Equal(t, 1000*time.Millisecond, r.EstimatedTime)
	assert.False(t, r.IsEmergency)
}

func TestClassifier_ZeroValueMatchesClassify(t *testing.T) {
	var c Classifier
	assert.Equal(t, Classify("/api/status", http.MethodGet), c.Classify("/api/status", http.MethodGet))
}

func TestClassifier_Override(t *testing.T) {
	c := NewClassifier()
	require.NoError(t, c.SetOverride("/api/firmware/", types.PriorityIoCritical))

	r := c.Classify("/api/firmware/upload", http.MethodPost)
	assert.Equal(t, types.PriorityIoCritical, r.Priority)
	assert.Equal(t, ReasonURIOverride, r.Reason)

	// Replacing the same pattern updates its priority.
	require.NoError(t, c.SetOverride("/api/firmware/", types.PriorityBackground))
	r = c.Classify("/api/firmware/upload", http.MethodPost)
	assert.Equal(t, types.PriorityBackground, r.Priority)

	require.NoError(t, c.RemoveOverride("/api/firmware/"))
	r = c.Classify("/api/firmware/upload", http.MethodPost)
	assert.Equal(t, ReasonPostMethod, r.Reason)
}

func TestClassifier_OverrideKeepsEmergencyFlag(t *testing.T) {
	c := NewClassifier()
	require.NoError(t, c.SetOverride("/api/emergency", types.PriorityIoCritical))

	r := c.Classify("/api/emergency/stop", http.MethodPost)
	assert.Equal(t, types.PriorityIoCritical, r.Priority)
	assert.True(t, r.IsEmergency)
}

func TestClassifier_OverrideValidation(t *testing.T) {
	c := NewClassifier()
	assert.ErrorIs(t, c.SetOverride("", types.PriorityNormal), ErrEmptyPattern)
	assert.Error(t, c.SetOverride("/x", types.PriorityLevel(42)))
	assert.ErrorIs(t, c.RemoveOverride("/missing"), ErrOverrideNotFound)
}

func TestClassifier_CustomHook(t *testing.T) {
	c := NewClassifier()
	err := c.RegisterCustom("/api/valves/", func(uri, method string) (Result, bool) {
		if method != http.MethodPost {
			return Result{}, false
		}
		return Result{
			Priority:      types.PriorityIoCritical,
			EstimatedTime: 150 * time.Millisecond,
		}, true
	})
	require.NoError(t, err)

	r := c.Classify("/api/valves/2", http.MethodPost)
	assert.Equal(t, types.PriorityIoCritical, r.Priority)
	assert.Equal(t, ReasonCustomClassifier, r.Reason)

	// Hook declines; built-in rules apply.
	r = c.Classify("/api/valves/2", http.MethodGet)
	assert.Equal(t, ReasonGetMethod, r.Reason)
}

func TestClassifier_CustomHookRunsBeforeOverride(t *testing.T) {
	c := NewClassifier()
	require.NoError(t, c.SetOverride("/api/valves/", types.PriorityBackground))
	require.NoError(t, c.RegisterCustom("/api/valves/", func(uri, method string) (Result, bool) {
		return Result{Priority: types.PriorityEmergency, Reason: "valve_panic"}, true
	}))

	r := c.Classify("/api/valves/2", http.MethodPost)
	assert.Equal(t, types.PriorityEmergency, r.Priority)
	assert.Equal(t, "valve_panic", r.Reason)
}

func TestClassifier_RegistrationValidation(t *testing.T) {
	c := NewClassifier()
	assert.ErrorIs(t, c.RegisterCustom("", func(string, string) (Result, bool) { return Result{}, false }), ErrEmptyPattern)
	assert.ErrorIs(t, c.RegisterCustom("/x", nil), ErrNilClassifierFunc)
}
