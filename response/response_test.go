package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionlab/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(fn func(c *gin.Context)) (int, map[string]any) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	fn(c)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body
}

func TestErrorMapsXErrors(t *testing.T) {
	err := xerrors.InvalidInput("spot", -1)
	status, body := render(func(c *gin.Context) { Error(c, err) })
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if body["code"] != float64(400002) || body["msg"] != "invalid input" {
		t.Errorf("body = %v", body)
	}
}

func TestErrorFallsBackTo500(t *testing.T) {
	status, body := render(func(c *gin.Context) { Error(c, errors.New("boom")) })
	if status != http.StatusInternalServerError || body["msg"] != "boom" {
		t.Errorf("status = %d body = %v", status, body)
	}
}

func TestSuccess(t *testing.T) {
	status, body := render(func(c *gin.Context) { Success(c, gin.H{"price": 10.45}) })
	if status != http.StatusOK || body["code"] != float64(0) {
		t.Errorf("status = %d body = %v", status, body)
	}
}
