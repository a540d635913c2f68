package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
	"github.com/bitfantasy/nimo-scm/internal/board/registry"
	"github.com/bitfantasy/nimo-scm/internal/board/repository"
)

// 看板缓存
const (
	kanbanCachePrefix = "taskboard:kanban:"
	kanbanCacheTTL    = 5 * time.Minute
)

// LabelInfo 卡片上的标签摘要
type LabelInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// KanbanCard 看板上的一张卡片
type KanbanCard struct {
	Task          *entity.TaskBoard   `json:"task"`
	Entity        *entity.Procurement `json:"entity"`
	Labels        []LabelInfo         `json:"labels"`
	AssignedUsers []string            `json:"assigned_users"`
}

// KanbanBoard 某个任务类型的看板视图, 按状态分列
type KanbanBoard struct {
	TaskType   string                  `json:"task_type"`
	Statuses   []string                `json:"statuses"`
	Board      map[string][]KanbanCard `json:"board"`
	TotalTasks int                     `json:"total_tasks"`
}

// GetKanbanBoard 看板视图: 空看板也返回全部状态列
func (s *TaskBoardService) GetKanbanBoard(ctx context.Context, taskType string, labelIDs []string) (*KanbanBoard, error) {
	stage, err := registry.Lookup(taskType)
	if err != nil {
		return nil, err
	}

	cacheKey := kanbanCachePrefix + taskType
	if len(labelIDs) > 0 {
		cacheKey += ":" + strings.Join(labelIDs, ",")
	}
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var board KanbanBoard
			if err := json.Unmarshal([]byte(cached), &board); err == nil {
				return &board, nil
			}
		}
	}

	board := &KanbanBoard{
		TaskType: taskType,
		Statuses: stage.Statuses,
		Board:    make(map[string][]KanbanCard, len(stage.Statuses)),
	}
	for _, status := range stage.Statuses {
		board.Board[status] = []KanbanCard{}
	}

	taskBoards, err := s.repos.TaskBoard.ListByType(ctx, taskType, labelIDs)
	if err != nil {
		return nil, err
	}
	if len(taskBoards) == 0 {
		return board, nil
	}

	taskIDs := make([]string, 0, len(taskBoards))
	for _, tb := range taskBoards {
		taskIDs = append(taskIDs, tb.TaskID)
	}
	entities, err := s.repos.Procurement.FindByIDs(ctx, stage, taskIDs)
	if err != nil {
		return nil, err
	}
	entityMap := make(map[string]*entity.Procurement, len(entities))
	for i := range entities {
		entityMap[entities[i].ID] = &entities[i]
	}

	for i := range taskBoards {
		tb := &taskBoards[i]
		column, ok := board.Board[tb.Status]
		if !ok {
			continue
		}
		board.Board[tb.Status] = append(column, KanbanCard{
			Task:          tb,
			Entity:        entityMap[tb.TaskID],
			Labels:        labelInfos(tb.TaskLabels),
			AssignedUsers: assignedUserNames(tb.AssignedUsers),
		})
		board.TotalTasks++
	}

	if s.rdb != nil {
		if data, err := json.Marshal(board); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, kanbanCacheTTL).Err(); err != nil {
				log.Printf("[TaskBoard] 写入看板缓存失败: %v", err)
			}
		}
	}
	return board, nil
}

// TaskListItem 列表项, 卡片字段平铺并附带底层单据
type TaskListItem struct {
	entity.TaskBoard
	Entity *entity.Procurement `json:"entity"`
}

// TaskListResult 分页列表结果
type TaskListResult struct {
	Tasks        []TaskListItem `json:"tasks"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	TotalRecords int64          `json:"total_records"`
	TotalPages   int            `json:"total_pages"`
}

// GetAllTasks 分页取任务列表, 底层单据按类型分组批量查询
func (s *TaskBoardService) GetAllTasks(ctx context.Context, page, limit int, filters map[string]string) (*TaskListResult, error) {
	taskBoards, total, err := s.repos.TaskBoard.List(ctx, page, limit, filters)
	if err != nil {
		return nil, err
	}

	// 按任务类型分组后整批取单据
	grouped := make(map[string][]string)
	for _, tb := range taskBoards {
		grouped[tb.TaskType] = append(grouped[tb.TaskType], tb.TaskID)
	}

	entityMap := make(map[string]*entity.Procurement)
	for taskType, ids := range grouped {
		stage, err := registry.Lookup(taskType)
		if err != nil {
			return nil, err
		}
		entities, err := s.repos.Procurement.FindByIDs(ctx, stage, ids)
		if err != nil {
			return nil, err
		}
		for i := range entities {
			entityMap[entities[i].ID] = &entities[i]
		}
	}

	items := make([]TaskListItem, 0, len(taskBoards))
	for _, tb := range taskBoards {
		items = append(items, TaskListItem{
			TaskBoard: tb,
			Entity:    entityMap[tb.TaskID],
		})
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &TaskListResult{
		Tasks:        items,
		Page:         page,
		Limit:        limit,
		TotalRecords: total,
		TotalPages:   totalPages,
	}, nil
}

// TaskWithHistory 卡片详情: 单据、倒序历史与标签
type TaskWithHistory struct {
	Task    *entity.TaskBoard          `json:"task"`
	Entity  *entity.Procurement        `json:"entity"`
	History []entity.TaskStatusHistory `json:"history"`
	Labels  []LabelInfo                `json:"labels"`
}

// GetTaskByID 按卡片ID取详情
func (s *TaskBoardService) GetTaskByID(ctx context.Context, taskBoardID string) (*TaskWithHistory, error) {
	taskBoard, err := s.repos.TaskBoard.FindByID(ctx, taskBoardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	stage, err := registry.Lookup(taskBoard.TaskType)
	if err != nil {
		return nil, err
	}
	procurement, err := s.repos.Procurement.FindByID(ctx, stage, taskBoard.TaskID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	history, err := s.repos.History.ListByTaskBoard(ctx, taskBoardID, false)
	if err != nil {
		return nil, err
	}

	return &TaskWithHistory{
		Task:    taskBoard,
		Entity:  procurement,
		History: history,
		Labels:  labelInfos(taskBoard.TaskLabels),
	}, nil
}

// GetTaskAuditTrail 单张卡片的状态流转轨迹, 按时间正序
func (s *TaskBoardService) GetTaskAuditTrail(ctx context.Context, taskBoardID string) ([]entity.TaskStatusHistory, error) {
	return s.repos.History.ListByTaskBoard(ctx, taskBoardID, true)
}

// StageHistory 带阶段标注的流转记录
type StageHistory struct {
	entity.TaskStatusHistory
	Stage string `json:"stage"`
}

// GetWorkflowAuditTrail 整条流程的流转轨迹: 以标题为关联键串起全部阶段
func (s *TaskBoardService) GetWorkflowAuditTrail(ctx context.Context, taskBoardID string) ([]StageHistory, error) {
	taskBoard, err := s.repos.TaskBoard.FindByID(ctx, taskBoardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	stage, err := registry.Lookup(taskBoard.TaskType)
	if err != nil {
		return nil, err
	}
	procurement, err := s.repos.Procurement.FindByID(ctx, stage, taskBoard.TaskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []StageHistory{}, nil
		}
		return nil, err
	}

	trail := make([]StageHistory, 0)
	for _, st := range registry.Stages() {
		stageRef := st
		ent, err := s.repos.Procurement.FindByTitle(ctx, s.db, &stageRef, procurement.Title)
		if err != nil {
			return nil, err
		}
		if ent == nil {
			continue
		}
		tb, err := s.repos.TaskBoard.FindByTask(ctx, s.db, stageRef.TaskType, ent.ID)
		if err != nil {
			return nil, err
		}
		if tb == nil {
			continue
		}
		history, err := s.repos.History.ListByTaskBoard(ctx, tb.ID, true)
		if err != nil {
			return nil, err
		}
		for _, h := range history {
			trail = append(trail, StageHistory{TaskStatusHistory: h, Stage: stageRef.TaskType})
		}
	}
	return trail, nil
}

var kanbanExportHeaders = []string{"Title", "Status", "State", "Assigned", "Created At"}

// ExportKanbanBoard 导出看板为Excel, 每个状态列一个工作表
func (s *TaskBoardService) ExportKanbanBoard(ctx context.Context, taskType string) (*excelize.File, string, error) {
	board, err := s.GetKanbanBoard(ctx, taskType, nil)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, status := range board.Statuses {
		sheet := status
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, "", fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}

		for col, h := range kanbanExportHeaders {
			name, _ := excelize.ColumnNumberToName(col + 1)
			cell := name + "1"
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, boldStyle)
		}

		for rowIdx, card := range board.Board[status] {
			row := rowIdx + 2
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), card.Task.Title)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), card.Task.Status)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), card.Task.CurrentState)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), strings.Join(card.AssignedUsers, ", "))
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), card.Task.CreatedAt.Format("2006-01-02 15:04"))
		}
	}

	filename := fmt.Sprintf("kanban_%s_%s.xlsx", taskType, time.Now().Format("20060102"))
	return f, filename, nil
}

func labelInfos(taskLabels []entity.TaskLabel) []LabelInfo {
	infos := make([]LabelInfo, 0, len(taskLabels))
	for _, tl := range taskLabels {
		if tl.Label == nil {
			continue
		}
		infos = append(infos, LabelInfo{
			ID:    tl.Label.ID,
			Name:  tl.Label.Name,
			Color: tl.Label.Color,
		})
	}
	return infos
}

func assignedUserNames(assigned []entity.TaskAssignedUser) []string {
	names := make([]string, 0, len(assigned))
	for _, au := range assigned {
		if au.User == nil {
			continue
		}
		names = append(names, au.User.Name)
	}
	return names
}
