package router

import (
	"net/http"
	"testing"

	"github.com/leadscout/leadscout-api/internal/config"
	"github.com/leadscout/leadscout-api/internal/provider"

	"github.com/gin-gonic/gin"
)

func TestSetupRouterAdminRouteMethods(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Log.Dir = t.TempDir()

	r := SetupRouter(cfg, &provider.Container{})

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	wanted := []string{
		http.MethodPost + " /api/v1/admin/commissions/allocate",
		http.MethodPost + " /api/v1/admin/commissions/decide",
		http.MethodPost + " /api/v1/admin/configs",
		http.MethodPost + " /api/v1/admin/withdrawals/process",
	}
	for _, want := range wanted {
		if !registered[want] {
			t.Fatalf("route %s not registered", want)
		}
	}

	// 配置更新统一走 POST
	if registered[http.MethodPut+" /api/v1/admin/configs"] {
		t.Fatalf("PUT /api/v1/admin/configs should not be registered")
	}
}
