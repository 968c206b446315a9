package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/order/domain"
)

const publishTimeout = 2 * time.Second

// OrderOutcomeEvent 是发送到 order-outcomes 主题的消息体
type OrderOutcomeEvent struct {
	OrderID     int64     `json:"orderId"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// KafkaOutcomePublisher 实现了 port.OrderOutcomePublisher 接口。
// 以商品 ID 作为消息 key，同一商品的结果落在同一个分区里。
type KafkaOutcomePublisher struct {
	writer mq.MessageWriter
	now    func() time.Time
}

func NewKafkaOutcomePublisher(writer mq.MessageWriter) *KafkaOutcomePublisher {
	return &KafkaOutcomePublisher{writer: writer, now: time.Now}
}

func (p *KafkaOutcomePublisher) PublishOrderOutcome(ctx context.Context, order domain.Order) error {
	event := OrderOutcomeEvent{
		OrderID:     order.ID,
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		Status:      string(order.Status.Kind()),
		Reason:      order.Status.Reason(),
		OccurredAt:  p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order outcome event")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return mq.ProduceMessage(ctx, p.writer, []byte(strconv.FormatInt(order.ProductID, 10)), payload)
}
