package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantLogged bool
	}{
		{
			name:       "no panic",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "string panic",
			handler:    func(http.ResponseWriter, *http.Request) { panic("test panic") },
			wantStatus: http.StatusInternalServerError,
			wantLogged: true,
		},
		{
			name: "runtime panic",
			handler: func(http.ResponseWriter, *http.Request) {
				var m map[string]string
				m["key"] = "value"
			},
			wantStatus: http.StatusInternalServerError,
			wantLogged: true,
		},
		{
			name: "panic after headers keeps written status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic("late")
			},
			wantStatus: http.StatusAccepted,
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, logs := observedLogger()
			w := httptest.NewRecorder()
			ErrorHandler(logger)(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := logs.FilterMessage("panic_recovered").Len() == 1; got != tt.wantLogged {
				t.Errorf("panic logged = %v, want %v", got, tt.wantLogged)
			}
		})
	}
}

func TestErrorHandler_ResponseBody(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	ErrorHandler(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("secret detail")
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agenda", nil))

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}
	body := decodeError(t, w)
	if body.Success || body.Error != "Internal Server Error" {
		t.Errorf("Unexpected body %+v", body)
	}
	if body.Message != "An unexpected error occurred" {
		t.Errorf("Panic detail leaked: %s", body.Message)
	}
	if body.Path != "/api/v1/agenda" || body.Timestamp == "" {
		t.Errorf("Expected path and timestamp, got %+v", body)
	}
}

func TestErrorHandler_RepanicsAbort(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("Expected ErrAbortHandler to propagate, got %v", r)
		}
	}()
	ErrorHandler(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
