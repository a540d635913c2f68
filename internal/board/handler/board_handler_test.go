package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
	"github.com/bitfantasy/nimo-scm/internal/board/repository"
	"github.com/bitfantasy/nimo-scm/internal/board/service"
	"github.com/bitfantasy/nimo-scm/internal/testutil"
)

func setupBoardHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos)
	handlers := NewHandlers(services)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	handlers.RegisterRoutes(api)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestCreateTaskEndpoint(t *testing.T) {
	env := setupBoardHandlerTest(t)
	token := testutil.DefaultTestToken()

	body := map[string]interface{}{
		"task_type":   "material_request",
		"title":       "MR-http-001",
		"description": "十月注塑件备料",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tasks", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	task := data["task"].(map[string]interface{})
	if task["task_type"] != "material_request" {
		t.Errorf("expected material_request, got %v", task["task_type"])
	}
	if task["status"] != "pending" {
		t.Errorf("expected pending default status, got %v", task["status"])
	}
}

func TestCreateTaskRequiresAuth(t *testing.T) {
	env := setupBoardHandlerTest(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"task_type": "material_request",
		"title":     "MR-noauth",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestCreateTaskUnknownTypeReturns400(t *testing.T) {
	env := setupBoardHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"task_type": "invoice_request",
		"title":     "bad",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40000 {
		t.Errorf("expected business code 40000, got %v", resp["code"])
	}
}

func TestKanbanBoardEndpoint(t *testing.T) {
	env := setupBoardHandlerTest(t)
	token := testutil.DefaultTestToken()

	// 先建两张卡片
	for _, title := range []string{"MR-kanban-001", "MR-kanban-002"} {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
			"task_type": "material_request",
			"title":     title,
		}, token)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed task failed: %d %s", w.Code, w.Body.String())
		}
	}

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/kanban/material_request", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_tasks"].(float64) != 2 {
		t.Errorf("expected 2 tasks on board, got %v", data["total_tasks"])
	}
	board := data["board"].(map[string]interface{})
	// 空看板也要有全部状态列
	for _, status := range []string{"pending", "approved", "rejected", "completed"} {
		if _, ok := board[status]; !ok {
			t.Errorf("expected column %s on board", status)
		}
	}
	pending := board["pending"].([]interface{})
	if len(pending) != 2 {
		t.Errorf("expected both cards in pending column, got %d", len(pending))
	}
}

func TestDragDropEndpoint(t *testing.T) {
	env := setupBoardHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"task_type": "material_request",
		"title":     "MR-drag-http",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed task failed: %d %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	task := resp["data"].(map[string]interface{})["task"].(map[string]interface{})
	boardID := task["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tasks/"+boardID+"/drag-drop", map[string]interface{}{
		"new_status": "in_purchase_req",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["success"] != true {
		t.Errorf("expected success true, got %v", data["success"])
	}

	// 非法目标列返回400
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tasks/"+boardID+"/drag-drop", map[string]interface{}{
		"new_status": "at_dock",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTaskAuditTrailEndpoint(t *testing.T) {
	env := setupBoardHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"task_type": "material_request",
		"title":     "MR-trail-http",
	}, token)
	resp := testutil.ParseResponse(w)
	task := resp["data"].(map[string]interface{})["task"].(map[string]interface{})
	boardID := task["id"].(string)
	entityID := task["task_id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/tasks/"+entityID+"/status", map[string]interface{}{
		"new_status": "in_purchase_req",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status update failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tasks/"+boardID+"/audit-trail", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	trail := resp["data"].([]interface{})
	if len(trail) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(trail))
	}
	// 升序: 创建在前, 流转在后
	first := trail[0].(map[string]interface{})
	second := trail[1].(map[string]interface{})
	if first["status"] != "pending" || second["status"] != "in_purchase_req" {
		t.Errorf("trail order wrong: %v -> %v", first["status"], second["status"])
	}

	var count int64
	env.DB.Model(&entity.TaskStatusHistory{}).Where("task_board_id = ?", boardID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 persisted history rows, got %d", count)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	env := setupBoardHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/tasks/no-such-id", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40400 {
		t.Errorf("expected business code 40400, got %v", resp["code"])
	}
}
