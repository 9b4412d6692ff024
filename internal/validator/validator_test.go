package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postBody struct {
	Title string `json:"title" binding:"required,min=3"`
	Slug  string `json:"slug" binding:"required,slug"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst postBody
	return Bind(c, &dst)
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	Setup()

	fields := bindBody(t, `{"title":"ab","slug":"Not A Slug"}`)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "slug")
	assert.Contains(t, fields["slug"], "lowercase")
}

func TestBindAcceptsValidBody(t *testing.T) {
	Setup()

	assert.Nil(t, bindBody(t, `{"title":"Welcome","slug":"welcome-to-class-7"}`))
}

func TestBindMalformedJSON(t *testing.T) {
	Setup()

	fields := bindBody(t, `{"title":`)
	assert.Equal(t, map[string]string{"detail": "malformed request body"}, fields)
}

func TestBindExamCode(t *testing.T) {
	Setup()

	type examBody struct {
		Code string `json:"code" binding:"required,exam_code"`
	}
	bind := func(body string) map[string]string {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var dst examBody
		return Bind(c, &dst)
	}

	assert.Nil(t, bind(`{"code":"GOF-QUIZ_1"}`))
	fields := bind(`{"code":"mid term!"}`)
	require.NotNil(t, fields)
	assert.Contains(t, fields["code"], "letters, digits")
}
