package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes(t *testing.T) {
	SetMaxBodyBytes(42)
	if maxBodyBytes != 42 {
		t.Fatalf("maxBodyBytes=%d", maxBodyBytes)
	}
	SetMaxBodyBytes(-1)
	if maxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("maxBodyBytes=%d want default", maxBodyBytes)
	}
}

func TestSetInferTimeoutSeconds(t *testing.T) {
	defer SetInferTimeoutSeconds(0)
	SetInferTimeoutSeconds(3)
	if got := inferTimeoutDuration(); got != 3*time.Second {
		t.Fatalf("timeout=%v", got)
	}
	SetInferTimeoutSeconds(-5)
	if got := inferTimeoutDuration(); got != 0 {
		t.Fatalf("negative timeout not clamped: %v", got)
	}
}

func TestCORSDefaults(t *testing.T) {
	SetCORSOptions(true, nil, nil, []string{"Authorization"})
	defer SetCORSOptions(false, nil, nil, nil)
	origins, methods, headers := corsDefaults()
	if len(origins) != 1 || origins[0] != "*" {
		t.Fatalf("origins=%v", origins)
	}
	if len(methods) != 4 {
		t.Fatalf("methods=%v", methods)
	}
	if len(headers) != 1 || headers[0] != "Authorization" {
		t.Fatalf("headers=%v", headers)
	}
}
