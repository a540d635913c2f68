// Package registry 定义采购流程的阶段表: 任务类型、底层表、状态枚举与流转顺序.
// 阶段表是静态闭集, 新增阶段需要改这里而不是配置.
package registry

import (
	"fmt"

	"github.com/bitfantasy/nimo-scm/internal/board/entity"
)

// Stage 采购流程中的一个阶段
type Stage struct {
	TaskType string
	Table    string
	// Statuses 该阶段单据允许的全部状态
	Statuses []string
	// Pending 新建单据的初始状态
	Pending string
	// Approved 触发自动创建下一阶段的状态
	Approved string
	// Completed 该阶段的完成状态
	Completed string
	// NextType 下一阶段的任务类型, 末阶段为空
	NextType string
}

// UnknownTaskTypeError 未知任务类型
type UnknownTaskTypeError struct {
	TaskType string
}

func (e *UnknownTaskTypeError) Error() string {
	return fmt.Sprintf("unknown task type: %s", e.TaskType)
}

// stages 按流程先后排列
var stages = []Stage{
	{
		TaskType: entity.TaskTypeMaterialRequest,
		Table:    "material_requests",
		Statuses: []string{
			entity.MaterialRequestStatusPending,
			entity.MaterialRequestStatusApproved,
			entity.MaterialRequestStatusInPurchaseReq,
			entity.MaterialRequestStatusReceivedFromVendor,
			entity.MaterialRequestStatusSendForPickup,
			entity.MaterialRequestStatusReadyForPickup,
			entity.MaterialRequestStatusRejected,
			entity.MaterialRequestStatusCompleted,
		},
		Pending:   entity.MaterialRequestStatusPending,
		Approved:  entity.MaterialRequestStatusApproved,
		Completed: entity.MaterialRequestStatusCompleted,
		NextType:  entity.TaskTypePurchaseRequest,
	},
	{
		TaskType: entity.TaskTypePurchaseRequest,
		Table:    "purchase_requests",
		Statuses: []string{
			entity.PurchaseRequestStatusPending,
			entity.PurchaseRequestStatusApproved,
			entity.PurchaseRequestStatusInProcurement,
			entity.PurchaseRequestStatusRejected,
			entity.PurchaseRequestStatusCompleted,
			entity.PurchaseRequestStatusCancelled,
		},
		Pending:   entity.PurchaseRequestStatusPending,
		Approved:  entity.PurchaseRequestStatusApproved,
		Completed: entity.PurchaseRequestStatusCompleted,
		NextType:  entity.TaskTypePurchaseQuotes,
	},
	{
		TaskType: entity.TaskTypePurchaseQuotes,
		Table:    "purchase_quotes",
		Statuses: []string{
			entity.PurchaseQuoteStatusPending,
			entity.PurchaseQuoteStatusApproved,
			entity.PurchaseQuoteStatusRejected,
			entity.PurchaseQuoteStatusCompleted,
			entity.PurchaseQuoteStatusSendToVendor,
			entity.PurchaseQuoteStatusInProcurement,
		},
		Pending:   entity.PurchaseQuoteStatusPending,
		Approved:  entity.PurchaseQuoteStatusApproved,
		Completed: entity.PurchaseQuoteStatusCompleted,
		NextType:  entity.TaskTypePurchaseOrder,
	},
	{
		TaskType: entity.TaskTypePurchaseOrder,
		Table:    "purchase_orders",
		Statuses: []string{
			entity.PurchaseOrderStatusPending,
			entity.PurchaseOrderStatusApproved,
			entity.PurchaseOrderStatusRejected,
			entity.PurchaseOrderStatusCompleted,
			entity.PurchaseOrderStatusCancelled,
			entity.PurchaseOrderStatusInProduction,
			entity.PurchaseOrderStatusInContainer,
			entity.PurchaseOrderStatusProformaCreated,
		},
		Pending:   entity.PurchaseOrderStatusPending,
		Approved:  entity.PurchaseOrderStatusApproved,
		Completed: entity.PurchaseOrderStatusCompleted,
		NextType:  entity.TaskTypeProformaInvoice,
	},
	{
		TaskType: entity.TaskTypeProformaInvoice,
		Table:    "proforma_invoices",
		Statuses: []string{
			entity.ProformaInvoiceStatusPending,
			entity.ProformaInvoiceStatusProcessingPayment,
			entity.ProformaInvoiceStatusReadyToLoad,
			entity.ProformaInvoiceStatusInContainer,
			entity.ProformaInvoiceStatusInTransit,
			entity.ProformaInvoiceStatusPendingDocumentation,
			entity.ProformaInvoiceStatusGatePass,
			entity.ProformaInvoiceStatusCompleted,
			entity.ProformaInvoiceStatusCancelled,
			entity.ProformaInvoiceStatusEstimatedArrival,
		},
		Pending: entity.ProformaInvoiceStatusPending,
		// 后四个阶段在 pending 时即可推进下一阶段
		Approved:  entity.ProformaInvoiceStatusPending,
		Completed: entity.ProformaInvoiceStatusCompleted,
		NextType:  entity.TaskTypeContainer,
	},
	{
		TaskType: entity.TaskTypeContainer,
		Table:    "containers",
		Statuses: []string{
			entity.ContainerStatusPending,
			entity.ContainerStatusReadyToLoad,
			entity.ContainerStatusTransit,
			entity.ContainerStatusEstimatedArrival,
			entity.ContainerStatusAtDock,
			entity.ContainerStatusUnderClearance,
			entity.ContainerStatusWaitingForDelivery,
			entity.ContainerStatusArrivedAtLocation,
			entity.ContainerStatusContainerUnloading,
			entity.ContainerStatusUnloadingCompleted,
			entity.ContainerStatusDelivered,
			entity.ContainerStatusCompleted,
			entity.ContainerStatusCancelled,
		},
		Pending:   entity.ContainerStatusPending,
		Approved:  entity.ContainerStatusPending,
		Completed: entity.ContainerStatusCompleted,
		NextType:  entity.TaskTypePackagingList,
	},
	{
		TaskType: entity.TaskTypePackagingList,
		Table:    "packaging_lists",
		Statuses: []string{
			entity.PackagingListStatusPending,
			entity.PackagingListStatusPackaging,
			entity.PackagingListStatusReadyToLoad,
			entity.PackagingListStatusInTransit,
			entity.PackagingListStatusUnpacking,
			entity.PackagingListStatusCompleted,
			entity.PackagingListStatusCancelled,
			entity.PackagingListStatusMissing,
		},
		Pending:   entity.PackagingListStatusPending,
		Approved:  entity.PackagingListStatusPending,
		Completed: entity.PackagingListStatusCompleted,
		NextType:  entity.TaskTypeCommercialInvoice,
	},
	{
		TaskType: entity.TaskTypeCommercialInvoice,
		Table:    "commercial_invoices",
		Statuses: []string{
			entity.CommercialInvoiceStatusPending,
			entity.CommercialInvoiceStatusAtDock,
			entity.CommercialInvoiceStatusReadyToLoad,
			entity.CommercialInvoiceStatusInContainer,
			entity.CommercialInvoiceStatusInTransit,
			entity.CommercialInvoiceStatusUnderClearance,
			entity.CommercialInvoiceStatusWaitingForDelivery,
			entity.CommercialInvoiceStatusCompleted,
			entity.CommercialInvoiceStatusCancelled,
			entity.CommercialInvoiceStatusEstimatedArrival,
			entity.CommercialInvoiceStatusArrivedAtLocation,
		},
		Pending:   entity.CommercialInvoiceStatusPending,
		Approved:  entity.CommercialInvoiceStatusPending,
		Completed: entity.CommercialInvoiceStatusCompleted,
		NextType:  "",
	},
}

var stageByType = func() map[string]*Stage {
	m := make(map[string]*Stage, len(stages))
	for i := range stages {
		m[stages[i].TaskType] = &stages[i]
	}
	return m
}()

// Lookup 按任务类型查找阶段
func Lookup(taskType string) (*Stage, error) {
	stage, ok := stageByType[taskType]
	if !ok {
		return nil, &UnknownTaskTypeError{TaskType: taskType}
	}
	return stage, nil
}

// Stages 返回全部阶段, 按流程顺序
func Stages() []Stage {
	return stages
}

// Next 返回下一阶段, 末阶段返回 nil
func (s *Stage) Next() *Stage {
	if s.NextType == "" {
		return nil
	}
	return stageByType[s.NextType]
}

// HasStatus 状态是否属于该阶段的枚举
func (s *Stage) HasStatus(status string) bool {
	for _, st := range s.Statuses {
		if st == status {
			return true
		}
	}
	return false
}

// IsFinal 是否末阶段
func (s *Stage) IsFinal() bool {
	return s.NextType == ""
}

// IsFirst 是否首阶段
func (s *Stage) IsFirst() bool {
	return s.TaskType == entity.TaskTypeMaterialRequest
}
