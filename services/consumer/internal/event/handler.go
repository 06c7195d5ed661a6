// Package event содержит транспорты очереди, доставляющие сообщения в service.Processor
package event

import "context"

// MessageHandler обрабатывает одно сообщение очереди: тип из X-MsgType и JSON-тело
type MessageHandler interface {
	HandleMessage(ctx context.Context, msgType string, body []byte) error
}
