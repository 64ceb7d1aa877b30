package interfaces

import "context"

// MessagingPort определяет интерфейс для публикации событий жизненного цикла листингов
type MessagingPort interface {
	Publish(ctx context.Context, topic string, key string, value []byte) error

	Close() error
}
