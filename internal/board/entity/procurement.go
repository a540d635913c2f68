package entity

import (
	"time"

	"gorm.io/gorm"
)

// Procurement 采购流程单据基础字段
// 八个阶段的单据共用同一组列, 流程引擎按表名通用读写
type Procurement struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	Title       string         `json:"title" gorm:"size:255;not null;index"`
	Description string         `json:"description" gorm:"type:text"`
	AssignedTo  *string        `json:"assigned_to" gorm:"size:36"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	Status      string         `json:"status" gorm:"size:50;default:pending"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// MaterialRequest 物料申请
type MaterialRequest struct {
	Procurement
}

func (MaterialRequest) TableName() string {
	return "material_requests"
}

// PurchaseRequest 采购申请
type PurchaseRequest struct {
	Procurement
}

func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// PurchaseQuote 采购报价
type PurchaseQuote struct {
	Procurement
}

func (PurchaseQuote) TableName() string {
	return "purchase_quotes"
}

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	Procurement
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// ProformaInvoice 形式发票
type ProformaInvoice struct {
	Procurement
}

func (ProformaInvoice) TableName() string {
	return "proforma_invoices"
}

// Container 货柜
type Container struct {
	Procurement
}

func (Container) TableName() string {
	return "containers"
}

// PackagingList 装箱单
type PackagingList struct {
	Procurement
}

func (PackagingList) TableName() string {
	return "packaging_lists"
}

// CommercialInvoice 商业发票
type CommercialInvoice struct {
	Procurement
}

func (CommercialInvoice) TableName() string {
	return "commercial_invoices"
}

// 物料申请状态
const (
	MaterialRequestStatusPending            = "pending"
	MaterialRequestStatusApproved           = "approved"
	MaterialRequestStatusInPurchaseReq      = "in_purchase_req"
	MaterialRequestStatusReceivedFromVendor = "received_from_vendor"
	MaterialRequestStatusSendForPickup      = "send_for_pickup"
	MaterialRequestStatusReadyForPickup     = "ready_for_pickup"
	MaterialRequestStatusRejected           = "rejected"
	MaterialRequestStatusCompleted          = "completed"
)

// 采购申请状态
const (
	PurchaseRequestStatusPending       = "pending"
	PurchaseRequestStatusApproved      = "approved"
	PurchaseRequestStatusInProcurement = "in_procurement"
	PurchaseRequestStatusRejected      = "rejected"
	PurchaseRequestStatusCompleted     = "completed"
	PurchaseRequestStatusCancelled     = "cancelled"
)

// 采购报价状态
const (
	PurchaseQuoteStatusPending       = "pending"
	PurchaseQuoteStatusApproved      = "approved"
	PurchaseQuoteStatusRejected      = "rejected"
	PurchaseQuoteStatusCompleted     = "completed"
	PurchaseQuoteStatusSendToVendor  = "send_to_vendor"
	PurchaseQuoteStatusInProcurement = "in_procurement"
)

// 采购订单状态
const (
	PurchaseOrderStatusPending         = "pending"
	PurchaseOrderStatusApproved        = "approved"
	PurchaseOrderStatusRejected        = "rejected"
	PurchaseOrderStatusCompleted       = "completed"
	PurchaseOrderStatusCancelled       = "cancelled"
	PurchaseOrderStatusInProduction    = "in_production"
	PurchaseOrderStatusInContainer     = "in_container"
	PurchaseOrderStatusProformaCreated = "proforma_created"
)

// 形式发票状态
const (
	ProformaInvoiceStatusPending              = "pending"
	ProformaInvoiceStatusProcessingPayment    = "processing_payment"
	ProformaInvoiceStatusReadyToLoad          = "ready_to_load"
	ProformaInvoiceStatusInContainer          = "in_container"
	ProformaInvoiceStatusInTransit            = "in_transit"
	ProformaInvoiceStatusPendingDocumentation = "pending_documentation"
	ProformaInvoiceStatusGatePass             = "gate_pass"
	ProformaInvoiceStatusCompleted            = "completed"
	ProformaInvoiceStatusCancelled            = "cancelled"
	ProformaInvoiceStatusEstimatedArrival     = "estimated_arrival"
)

// 货柜状态
const (
	ContainerStatusPending            = "pending"
	ContainerStatusReadyToLoad        = "ready_to_load"
	ContainerStatusTransit            = "transit"
	ContainerStatusEstimatedArrival   = "estimated_arrival"
	ContainerStatusAtDock             = "at_dock"
	ContainerStatusUnderClearance     = "under_clearance"
	ContainerStatusWaitingForDelivery = "waiting_for_delivery"
	ContainerStatusArrivedAtLocation  = "arrived_at_location"
	ContainerStatusContainerUnloading = "container_unloading"
	ContainerStatusUnloadingCompleted = "unloading_completed"
	ContainerStatusDelivered          = "delivered"
	ContainerStatusCompleted          = "completed"
	ContainerStatusCancelled          = "cancelled"
)

// 装箱单状态
const (
	PackagingListStatusPending     = "pending"
	PackagingListStatusPackaging   = "packaging"
	PackagingListStatusReadyToLoad = "ready_to_load"
	PackagingListStatusInTransit   = "in_transit"
	PackagingListStatusUnpacking   = "unpacking"
	PackagingListStatusCompleted   = "completed"
	PackagingListStatusCancelled   = "cancelled"
	PackagingListStatusMissing     = "missing"
)

// 商业发票状态
const (
	CommercialInvoiceStatusPending            = "pending"
	CommercialInvoiceStatusAtDock             = "at_dock"
	CommercialInvoiceStatusReadyToLoad        = "ready_to_load"
	CommercialInvoiceStatusInContainer        = "in_container"
	CommercialInvoiceStatusInTransit          = "in_transit"
	CommercialInvoiceStatusUnderClearance     = "under_clearance"
	CommercialInvoiceStatusWaitingForDelivery = "waiting_for_delivery"
	CommercialInvoiceStatusCompleted          = "completed"
	CommercialInvoiceStatusCancelled          = "cancelled"
	CommercialInvoiceStatusEstimatedArrival   = "estimated_arrival"
	CommercialInvoiceStatusArrivedAtLocation  = "arrived_at_location"
)
