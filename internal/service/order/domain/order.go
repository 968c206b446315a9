// internal/service/order/domain/order.go
package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

const (
	// UnknownProductName 用于还没拿到商品信息就失败的订单
	UnknownProductName = "Unknown"

	ReasonProductNotAvailable = "Product not available"
	ReasonReserveFailed       = "Failed to reserve product"
	// CommunicationErrorPrefix 后面拼接具体的错误描述
	CommunicationErrorPrefix = "Error communicating with inventory service: "
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

type StatusKind string

const (
	StatusConfirmed StatusKind = "CONFIRMED"
	StatusFailed    StatusKind = "FAILED"
)

// Status 是订单的最终结果：Confirmed，或者带原因的 Failed。
// JSON 形式为 "CONFIRMED" 或 "FAILED: <reason>"。
type Status struct {
	kind   StatusKind
	reason string
}

func Confirmed() Status { return Status{kind: StatusConfirmed} }

func Failed(reason string) Status { return Status{kind: StatusFailed, reason: reason} }

func (s Status) Kind() StatusKind  { return s.kind }
func (s Status) Reason() string    { return s.reason }
func (s Status) IsConfirmed() bool { return s.kind == StatusConfirmed }
func (s Status) IsFailed() bool    { return s.kind == StatusFailed }

func (s Status) String() string {
	if s.kind == StatusFailed {
		return string(StatusFailed) + ": " + s.reason
	}
	return string(s.kind)
}

// ParseStatus 是 String 的逆操作
func ParseStatus(raw string) (Status, error) {
	switch {
	case raw == string(StatusConfirmed):
		return Confirmed(), nil
	case raw == string(StatusFailed):
		return Failed(""), nil
	case strings.HasPrefix(raw, string(StatusFailed)+": "):
		return Failed(strings.TrimPrefix(raw, string(StatusFailed)+": ")), nil
	default:
		return Status{}, ErrInvalidStatus
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s.kind == "" {
		return nil, ErrInvalidStatus
	}
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order 一旦写入订单日志就不再修改。ProductName 是下单时的快照。
type Order struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Status      Status `json:"status"`
}

// Recorded 订单日志分配的 ID 从 1 开始，0 表示这条订单没有被记录
func (o Order) Recorded() bool {
	return o.ID > 0
}
