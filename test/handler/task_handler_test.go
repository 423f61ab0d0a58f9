package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/errcode"
)

func TestTaskCRUD(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	token := registerUser(t, router, uniqueEmail("task"))
	due := time.Now().Add(24 * time.Hour).Unix()

	resp, envelope := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title":  "Prepare sprint review",
		"notes":  "slides and demo",
		"due_at": due,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)
	var task model.Task
	require.NoError(t, json.Unmarshal(envelope.Data, &task))
	require.False(t, task.Done)

	resp, envelope = doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"notes": "no title",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrInvalid), envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+task.ID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(envelope.Data, &task))
	require.True(t, task.Done)

	resp, envelope = doJSON(t, router, http.MethodPut, "/api/v1/tasks/"+task.ID, token, map[string]interface{}{
		"title":  "Prepare sprint review",
		"notes":  "slides only",
		"due_at": due,
		"done":   false,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(envelope.Data, &task))
	require.False(t, task.Done)
	require.Equal(t, "slides only", task.Notes)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Tasks []model.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &list))
	require.Len(t, list.Tasks, 1)

	resp, envelope = doJSON(t, router, http.MethodDelete, "/api/v1/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+task.ID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, uint32(errcode.ErrNotFound), envelope.Code)
}

func TestTaskListOrdersOpenFirst(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()

	token := registerUser(t, router, uniqueEmail("task-order"))
	base := time.Now().Unix()

	var ids []string
	for i, title := range []string{"late", "early", "finished"} {
		resp, envelope := doJSON(t, router, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
			"title":  title,
			"due_at": base + int64(3-i)*3600,
		})
		require.Equal(t, http.StatusOK, resp.Code)
		var task model.Task
		require.NoError(t, json.Unmarshal(envelope.Data, &task))
		ids = append(ids, task.ID)
	}
	resp, envelope := doJSON(t, router, http.MethodPost, "/api/v1/tasks/"+ids[2]+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Zero(t, envelope.Code)

	resp, envelope = doJSON(t, router, http.MethodGet, "/api/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Tasks []model.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &list))
	require.Len(t, list.Tasks, 3)
	require.Equal(t, "early", list.Tasks[0].Title)
	require.Equal(t, "late", list.Tasks[1].Title)
	require.Equal(t, "finished", list.Tasks[2].Title)
	require.True(t, list.Tasks[2].Done)
}
