package handler

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/response"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/service"
	"github.com/planhub/planhub_go_server/internal/testutil"
)

func setupTaskHandler(t *testing.T) (*TaskHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	h := NewTaskHandler(service.NewTaskService(repository.NewTaskRepository(db)))

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return h, db, cleanup
}

func TestTaskHandler_CreateAndList(t *testing.T) {
	h, db, cleanup := setupTaskHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/tasks", asUser(user.ID), h.Create)
	router.GET("/tasks", asUser(user.ID), h.List)

	resp := parseResponse(t, performRequest(router, "POST", "/tasks", dto.CreateTaskRequest{
		Title:    "准备季度汇报",
		Priority: 2,
	}))
	require.Equal(t, response.CodeSuccess, resp.Code)

	resp = parseResponse(t, performRequest(router, "GET", "/tasks", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var page response.PageData
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestTaskHandler_List_BadCompletedFilter(t *testing.T) {
	h, db, cleanup := setupTaskHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.GET("/tasks", asUser(user.ID), h.List)

	resp := parseResponse(t, performRequest(router, "GET", "/tasks?completed=maybe", nil))
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestTaskHandler_Complete(t *testing.T) {
	h, db, cleanup := setupTaskHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	task := testutil.TestTask(t, db, user.ID)

	router := gin.New()
	router.POST("/tasks/:id/complete", asUser(user.ID), h.Complete)

	path := fmt.Sprintf("/tasks/%d/complete", task.ID)
	resp := parseResponse(t, performRequest(router, "POST", path, gin.H{"completed": true}))
	require.Equal(t, response.CodeSuccess, resp.Code)

	reloaded, err := repository.NewTaskRepository(db).GetByID(task.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Completed)
}

func TestTaskHandler_Delete_OtherUser(t *testing.T) {
	h, db, cleanup := setupTaskHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	task := testutil.TestTask(t, db, owner.ID)

	router := gin.New()
	router.DELETE("/tasks/:id", asUser(other.ID), h.Delete)

	resp := parseResponse(t, performRequest(router, "DELETE", fmt.Sprintf("/tasks/%d", task.ID), nil))
	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}
