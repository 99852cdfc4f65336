package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_Prefix(t *testing.T) {
	assert.Equal(t, "/api", NewRouter(gin.New()).Prefix())
	assert.Equal(t, "/api/v2", NewRouter(gin.New(), WithAPIVersion("v2")).Prefix())
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var order []string
	group := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) {
			order = append(order, "group")
			c.Next()
		}).
		GET("/ping", func(c *gin.Context) {
			order = append(order, "handler")
			c.String(http.StatusOK, "pong")
		}).
		POST("/echo", func(c *gin.Context) {
			c.String(http.StatusCreated, "created")
		})

	r.Register(group)
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"group", "handler"}, order)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/test/echo", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDomainGroup_Accessors(t *testing.T) {
	group := NewDomainGroup("proxy", "")
	assert.Equal(t, "proxy", group.Name())
	assert.Empty(t, group.Prefix())
}
